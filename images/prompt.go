package images

import (
	"fmt"
	"strings"

	"policygen/main_backend/cdn"
	ds "policygen/main_backend/database_service"
)

func buildPrompt(req Request, dims cdn.Dimensions) string {
	var sb strings.Builder
	switch req.Type {
	case ds.ImageAppIcon:
		fmt.Fprintf(&sb, "Design a square app icon for %q. ", req.AppName)
		sb.WriteString("A single bold, recognizable symbol centered on a clean background, no text, no rounded-corner mask, no device frame. ")
	case ds.ImageFeatureGraphic:
		fmt.Fprintf(&sb, "Design a store feature graphic banner for %q. ", req.AppName)
		sb.WriteString("Wide landscape composition that shows what the app is about; the app name may appear once in large, legible type; keep important content away from the edges. ")
	case ds.ImageStoreScreenshot:
		fmt.Fprintf(&sb, "Create a polished store screenshot for %q based on the attached reference screenshot(s). ", req.AppName)
		sb.WriteString("Keep the app's real interface recognizable, place it in a portrait phone frame, and add one short marketing headline above it. ")
	}
	fmt.Fprintf(&sb, "Output size: %dx%d pixels.", dims.Width, dims.Height)

	if d := strings.TrimSpace(req.Description); d != "" {
		fmt.Fprintf(&sb, "\nApp description: %s", d)
	}
	if s := strings.TrimSpace(req.Style); s != "" {
		fmt.Fprintf(&sb, "\nVisual style: %s", s)
	}
	if p := strings.TrimSpace(req.Prompt); p != "" {
		fmt.Fprintf(&sb, "\nAdditional instructions: %s", p)
	}
	if n := len(req.References); n > 0 && req.Type != ds.ImageStoreScreenshot {
		fmt.Fprintf(&sb, "\nUse the %d attached image(s) as visual reference.", n)
	}
	return sb.String()
}
