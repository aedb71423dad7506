package main

import (
	"fmt"
	"os"

	"github.com/agiangrant/sjik/cmd/sjik/commands"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = commands.Run(args)
	case "play":
		err = commands.Play(args)
	case "init":
		err = commands.Init(args)
	case "palette":
		err = commands.Palette(args)
	case "version", "--version":
		fmt.Printf("sjik version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sjik - retained UI and media player on the GPU

Usage: sjik <command> [options]

Commands:
  run       Open a window rendering the configured HTML page
  play      Play a media file in a window
  init      Write a default sjik.toml and page.html
  palette   Print the active color palette as TOML
  version   Print version information
  help      Show this help message

Examples:
  sjik init                          Create sjik.toml and page.html
  sjik run                           Render page.html from sjik.toml
  sjik run -page ui.html -media a.mp4
  sjik play -hwaccel vaapi movie.mkv

Playback keys:
  space        play / pause
  left, right  seek 5 seconds

Configuration:
  Projects are configured via sjik.toml in the working directory.
  Media playback needs a binary built with -tags ffmpeg.`)
}
