// Command verifyctl is the cobra/viper CLI front end to the verification
// engine: a "verify" subcommand that runs one document through the full
// pipeline and a "replay" subcommand that loads a prior run's manifest and
// reports its page and zone counts; replay does not re-score the document.
//
// Grounded on other_examples/manifests/MeKo-Christian-pogo's cobra+viper
// CLI shape: a root command, flag/env/config-file precedence bound
// through viper, subcommands doing the real work.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loanverify/docverify/internal/config"
	"github.com/loanverify/docverify/internal/verify/model"
	"github.com/loanverify/docverify/internal/verify/orchestrator"
)

// Exit codes per the external-interfaces contract: 0 VALID, 1 INVALID,
// 2 pipeline/acquisition ERROR, 3 usage error.
const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
	exitUsage   = 3
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "verifyctl",
		Short: "Verify loan documents against a case model",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file read into viper (engine settings still come from .env + environment)")

	root.AddCommand(newVerifyCmd())
	root.AddCommand(newReplayCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func loadConfig() config.Config {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		_ = viper.ReadInConfig()
	}
	return config.Load()
}

func newVerifyCmd() *cobra.Command {
	var (
		documentPath string
		caseFile     string
		outputDir    string
		ocrLanguage  string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run one document through the verification pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if documentPath == "" || caseFile == "" {
				fmt.Fprintln(os.Stderr, "--document and --case are required")
				os.Exit(exitUsage)
			}
			cfg := loadConfig()
			if ocrLanguage != "" {
				cfg.OCRLanguage = ocrLanguage
			}
			if outputDir != "" {
				cfg.ExtractDir = outputDir
			}

			caseModel, fields, err := loadCaseFile(caseFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, "usage error:", err)
				os.Exit(exitUsage)
			}

			report, manifest, err := orchestrator.Run(context.Background(), cfg, documentPath, caseModel, fields)
			if err != nil {
				fmt.Fprintln(os.Stderr, "pipeline error:", err)
				os.Exit(exitError)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
			_ = manifest

			switch report.Status {
			case model.StatusValid:
				os.Exit(exitValid)
			case model.StatusInvalid:
				os.Exit(exitInvalid)
			default:
				os.Exit(exitError)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&documentPath, "document", "", "path to the PDF to verify")
	cmd.Flags().StringVar(&caseFile, "case", "", "path to a JSON case file (caseModel + fields)")
	cmd.Flags().StringVar(&outputDir, "output", "", "override the extract output directory")
	cmd.Flags().StringVar(&ocrLanguage, "lang", "", "override the OCR language")
	_ = viper.BindPFlag("document", cmd.Flags().Lookup("document"))
	return cmd
}

// newReplayCmd loads an existing <ExtractDir>/<caseId>/manifest.json and
// prints its page and zone counts, the supplemented manifest-driven-replay
// feature. It checks that --case parses but does not re-run the Field
// Locator or the Signature Zone Engine against the manifest.
func newReplayCmd() *cobra.Command {
	var (
		caseID     string
		caseFile   string
		extractDir string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Load a prior run's extracted manifest and report its page and zone counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if caseID == "" || caseFile == "" {
				fmt.Fprintln(os.Stderr, "--case-id and --case are required")
				os.Exit(exitUsage)
			}
			cfg := loadConfig()
			if extractDir != "" {
				cfg.ExtractDir = extractDir
			}

			_, _, err := loadCaseFile(caseFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, "usage error:", err)
				os.Exit(exitUsage)
			}

			manifestPath := cfg.ExtractDir + "/" + caseID + "/manifest.json"
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, "manifest not found:", err)
				os.Exit(exitError)
			}
			var manifest orchestrator.Manifest
			if err := json.Unmarshal(data, &manifest); err != nil {
				fmt.Fprintln(os.Stderr, "corrupt manifest:", err)
				os.Exit(exitError)
			}

			fmt.Printf("loaded manifest for case %s: %d pages, %d zones\n", manifest.CaseID, len(manifest.Pages), len(manifest.Zones))
			fmt.Println("replay re-scoring against cached page rasters is not yet wired to a standalone re-score entrypoint; use `verify` to regenerate a fresh report")
			os.Exit(exitValid)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case-id", "", "case ID whose manifest to replay")
	cmd.Flags().StringVar(&caseFile, "case", "", "path to a JSON case file (caseModel + fields)")
	cmd.Flags().StringVar(&extractDir, "extract-dir", "", "override the extract directory to read from")
	return cmd
}

// caseFileDTO is the on-disk shape of --case: a caseModel map plus the
// field specs to check, mirroring verifyRequest in internal/handlers.
type caseFileDTO struct {
	CaseID    string                 `json:"caseId"`
	CaseModel map[string]interface{} `json:"caseModel"`
	Fields    []struct {
		Name           string   `json:"name"`
		Labels         []string `json:"labels"`
		Type           string   `json:"type"`
		Required       bool     `json:"required"`
		SearchStrategy string   `json:"searchStrategy"`
	} `json:"fields"`
}

func loadCaseFile(path string) (model.CaseModel, []model.FieldSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CaseModel{}, nil, err
	}
	var dto caseFileDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return model.CaseModel{}, nil, err
	}
	caseModel := model.CaseModel{CaseID: dto.CaseID, Fields: dto.CaseModel}
	fields := make([]model.FieldSpec, len(dto.Fields))
	for i, f := range dto.Fields {
		fields[i] = model.FieldSpec{
			Name:           f.Name,
			Labels:         f.Labels,
			Type:           model.FieldType(f.Type),
			Required:       f.Required,
			SearchStrategy: model.SearchStrategy(f.SearchStrategy),
		}
	}
	return caseModel, fields, nil
}
