package app

import (
	"fmt"

	"github.com/phillarmonic/figlet/figletlib"
)

// ShowVersion displays version information with ASCII art
func ShowVersion(version, commit, date string) error {
	loader := figletlib.NewEmbededLoader()
	font, err := loader.GetFontByName("standard")
	if err != nil {
		return err
	}

	startColor, _ := figletlib.ParseColor("#00FF95")
	endColor, _ := figletlib.ParseColor("#00C2FF")
	gradientConfig := figletlib.ColorConfig{
		Mode:       figletlib.ColorModeGradient,
		StartColor: startColor,
		EndColor:   endColor,
	}

	fmt.Println("")
	figletlib.PrintColoredMsg("dsh", font, 80, font.Settings(), "left", gradientConfig)

	fmt.Println("dsh (do-shell) interactive shell")
	fmt.Println()
	fmt.Println("Pipelines, redirections, subshells and full job control.")
	fmt.Println("By Phillarmonic Software <https://github.com/phillarmonic/dsh>")
	fmt.Println("")
	fmt.Printf("Version %s\n", version)
	if commit != "unknown" {
		fmt.Printf("commit: %s\n", commit)
	}
	if date != "unknown" {
		fmt.Printf("built: %s\n", date)
	}
	return nil
}
