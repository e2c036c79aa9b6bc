package banner

import (
	"fmt"

	"logscope/internal/version"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

func Print() {
	ptermLogo, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithRGB("Log", pterm.NewRGB(38, 139, 210)),
		putils.LettersFromStringWithRGB("Scope", pterm.NewRGB(0, 0, 0))).
		Srender()

	pterm.DefaultCenter.Print(ptermLogo)

	pterm.DefaultCenter.Print(
		pterm.DefaultHeader.
			WithFullWidth().
			WithBackgroundStyle(pterm.NewStyle(pterm.BgLightBlue)).
			WithMargin(5).
			Sprint(pterm.White("🔍 LogScope - Access Log Analysis Engine")),
	)

	pterm.Info.Println(
		"Interactive filtering, sorting and statistics over web-server access logs." +
			"\nParses Combined, Common and NCSA log formats, malformed input included." +
			fmt.Sprintf("\nVersion %s.", version.Version),
	)
}
