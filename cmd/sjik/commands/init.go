package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agiangrant/sjik"
)

// Init implements the 'sjik init' command
func Init(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	name := fs.String("name", "", "Project name")
	dir := fs.String("dir", ".", "Directory to initialize")
	force := fs.Bool("force", false, "Overwrite existing files")
	fs.Parse(args)
	return initProject(*dir, *name, *force)
}

func initProject(dir, name string, force bool) error {
	projectName := name
	if projectName == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		projectName = filepath.Base(abs)
	}

	configPath := filepath.Join(dir, sjik.ConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", sjik.ConfigFile)
	}

	fmt.Printf("Initializing sjik project: %s\n", projectName)

	cfg := sjik.DefaultConfig()
	cfg.App.Name = projectName
	cfg.Window.Title = projectName
	if err := sjik.SaveConfig(configPath, cfg); err != nil {
		return err
	}
	fmt.Printf("  ✓ Created %s\n", sjik.ConfigFile)

	pagePath := filepath.Join(dir, cfg.App.Page)
	if _, err := os.Stat(pagePath); os.IsNotExist(err) || force {
		page := fmt.Sprintf(pageTemplate, projectName)
		if err := os.WriteFile(pagePath, []byte(page), 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", cfg.App.Page, err)
		}
		fmt.Printf("  ✓ Created %s\n", cfg.App.Page)
	}

	if err := os.MkdirAll(filepath.Join(dir, cfg.Assets.Dir), 0755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}

	fmt.Println("")
	fmt.Println("✓ Project initialized!")
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  sjik run                 # Render page.html")
	fmt.Println("  sjik run -media a.mp4    # Play a video behind the page")
	return nil
}

const pageTemplate = `<!doctype html>
<html>
<body>
  <div class="flex flex-col w-full h-full items-center justify-center gap-4">
    <div class="text-2xl font-bold text-white">%s</div>
    <div class="bg-blue-500 hover:bg-blue-600 text-white px-4 py-2 rounded-lg">Built with sjik</div>
  </div>
</body>
</html>
`
