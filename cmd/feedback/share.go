package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EcstasyEngineer/feedback-demo/internal/session"
)

// shareCmd groups the share blob subcommands
var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Encode and decode session share blobs",
	Long: `Session bundles travel as base64 JSON blobs, the same format the web
player carries in its URL fragment. 'encode' builds a blob from local
settings and prompts; 'decode' prints what a blob contains before you
run it.`,
}

var shareDecodeCmd = &cobra.Command{
	Use:   "decode <blob-or-url>",
	Short: "Decode a share blob and print its contents as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShareDecode,
}

var shareEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode settings and prompts into a share blob",
	RunE:  runShareEncode,
}

var (
	shareSettingsPath string
	sharePromptsPath  string
)

func init() {
	shareCmd.AddCommand(shareDecodeCmd)
	shareCmd.AddCommand(shareEncodeCmd)
	shareEncodeCmd.Flags().StringVar(&shareSettingsPath, "settings", "", "YAML session settings file (defaults if omitted)")
	shareEncodeCmd.Flags().StringVar(&sharePromptsPath, "prompts", "", "Text file with one prompt per line")
}

func runShareDecode(cmd *cobra.Command, args []string) error {
	share, err := session.DecodeShare(args[0])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(share)
}

func runShareEncode(cmd *cobra.Command, args []string) error {
	settings := session.DefaultSettings()
	if shareSettingsPath != "" {
		s, err := session.LoadSettingsFile(shareSettingsPath)
		if err != nil {
			return err
		}
		settings = s
	}

	var prompts []string
	if sharePromptsPath != "" {
		p, err := loadPrompts(sharePromptsPath)
		if err != nil {
			return err
		}
		prompts = p
	}
	cmd.SilenceUsage = true

	blob, err := session.EncodeShare(&session.Share{Prompts: prompts, Settings: settings})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), blob)
	return nil
}
