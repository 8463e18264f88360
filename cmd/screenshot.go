package cmd

import (
	"encoding/base64"
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/screenshot"
	"github.com/openjab/jab-cli/internal/tree"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a Java window as an image",
	Long: `Capture the target window's screen region. With --annotate, each
accessible element's bounding box and id are drawn onto the image so a
vision model can refer back to elements by id.

Without --output the image is written to stdout as base64.`,
	RunE: runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	addWindowFlags(screenshotCmd)
	screenshotCmd.Flags().StringP("output", "o", "", "Output file path (default: base64 to stdout)")
	screenshotCmd.Flags().String("image-format", "png", "Image format: png, jpg")
	screenshotCmd.Flags().Int("quality", 80, "JPEG quality 1-100")
	screenshotCmd.Flags().Float64("scale", 0.5, "Scale factor 0.1-1.0")
	screenshotCmd.Flags().Bool("annotate", false, "Draw element bounding boxes and ids")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	root, err := bindWindow(cmd, d)
	if err != nil {
		return err
	}

	bounds, err := root.Bounds()
	if err != nil {
		return err
	}
	if bounds.Empty() {
		return fmt.Errorf("window %q has no visible area", d.Window().Title)
	}

	img, err := screenshot.CaptureRect(bounds.X, bounds.Y, bounds.Width, bounds.Height)
	if err != nil {
		return err
	}

	annotate, _ := cmd.Flags().GetBool("annotate")
	scale, _ := cmd.Flags().GetFloat64("scale")
	if annotate {
		el, err := d.Snapshot(root, tree.SnapshotOptions{VisibleOnly: true})
		if err != nil {
			return err
		}
		flat := model.Flatten([]model.Element{el})
		img = screenshot.Annotate(img, flat, image.Pt(bounds.X, bounds.Y))
		// Keep labels legible: annotation implies full resolution unless the
		// user asked for something else explicitly.
		if !cmd.Flags().Changed("scale") {
			scale = 1.0
		}
	}

	format, _ := cmd.Flags().GetString("image-format")
	quality, _ := cmd.Flags().GetInt("quality")
	data, err := screenshot.Encode(img, screenshot.Options{
		Format:  format,
		Quality: quality,
		Scale:   scale,
	})
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		fmt.Println(base64.StdEncoding.EncodeToString(data))
		return nil
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("saved %s (%d bytes)\n", outPath, len(data))
	return nil
}
