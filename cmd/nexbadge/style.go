package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexbadge/nexbadge/internal/badge"
	"github.com/nexbadge/nexbadge/internal/common/logger"
	"github.com/nexbadge/nexbadge/internal/common/output"
)

var (
	styleLabel      string
	styleCount      string
	styleStyle      string
	styleFormat     string
	styleLabelColor string
	styleColor      string
)

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Configure how badges look",
	Long: `Configure the badge label, count source, shields.io style, output
format, and colors. Without flags the current preferences are printed.
Changes apply to the badge file written by the next sync.`,
	Run: runStyle,
}

func init() {
	styleCmd.Flags().StringVar(&styleLabel, "label", "", "Badge label text")
	styleCmd.Flags().StringVar(&styleCount, "count", "", "Count source: total or unique")
	styleCmd.Flags().StringVar(&styleStyle, "style", "", "Badge style: flat, flat-square, plastic, for-the-badge, social")
	styleCmd.Flags().StringVar(&styleFormat, "format", "", "Output format: markdown, url, rst, asciidoc, html")
	styleCmd.Flags().StringVar(&styleLabelColor, "label-color", "", "Label background as 6 hex digits, or 'default'")
	styleCmd.Flags().StringVar(&styleColor, "color", "", "Count background as 6 hex digits, or 'default'")
	rootCmd.AddCommand(styleCmd)
}

func runStyle(cmd *cobra.Command, args []string) {
	reg := mustLoadOrInitRegistry()

	if styleLabel == "" && styleCount == "" && styleStyle == "" &&
		styleFormat == "" && styleLabelColor == "" && styleColor == "" {
		fmt.Print(reg.Style.Summary())
		return
	}

	if styleLabel != "" {
		reg.Style.Label = styleLabel
	}
	if styleCount != "" {
		c, err := badge.ParseCount(styleCount)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(exitFailure)
		}
		reg.Style.Count = c
	}
	if styleStyle != "" {
		s, err := badge.ParseStyle(styleStyle)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(exitFailure)
		}
		reg.Style.Style = s
	}
	if styleFormat != "" {
		f, err := badge.ParseFormat(styleFormat)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(exitFailure)
		}
		reg.Style.Format = f
	}
	if styleLabelColor != "" {
		c, err := badge.NormalizeColor(styleLabelColor)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(exitFailure)
		}
		reg.Style.LabelColor = c
	}
	if styleColor != "" {
		c, err := badge.NormalizeColor(styleColor)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(exitFailure)
		}
		reg.Style.Color = c
	}

	saveRegistry(reg)
	output.PrintSuccess("Style preferences updated")
	output.PrintInfo("Run 'nexbadge sync' to regenerate the badge file")
}
