package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/contractd/internal/api"
	"github.com/kalambet/contractd/internal/config"
	"github.com/kalambet/contractd/internal/consolidate"
	"github.com/kalambet/contractd/internal/engine"
	"github.com/kalambet/contractd/internal/extraction"
	"github.com/kalambet/contractd/internal/pipeline"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.pdf>",
	Short: "Run extraction on a local PDF without the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := config.NewLogger(cfg.Log, os.Stderr)

		p := pipeline.New(engine.NewOllamaEngine(cfg.Ollama.BaseURL), pipeline.Models{
			Entity: cfg.Ollama.EntityModel,
			Embed:  cfg.Ollama.EmbedModel,
		}, logger)
		if err := p.Preflight(cmd.Context()); err != nil {
			return err
		}

		printStep("Analyzing %s", args[0])
		fs, meta, err := p.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		result := consolidate.Finalize(fs)
		logger.Debug("analysis finished", "duration_ms", meta.DurationMs, "renewal_method", meta.RenewalMethod)

		if ok, err := writeStructured(os.Stdout, outputFormat, result); ok {
			return err
		}
		renderResult(os.Stdout, result.ExtractedData, result.IdentifiedGaps)
		return nil
	},
}

// renderResult prints one line per leaf followed by the gaps.
func renderResult(w io.Writer, data consolidate.ExtractedData, gaps []string) {
	rows := []struct {
		label string
		c     *extraction.Candidate
	}{
		{"Customer", data.PartyIdentification.Customer},
		{"Vendor", data.PartyIdentification.Vendor},
		{"Signatory", data.PartyIdentification.AuthorizedSignatories},
		{"Payment terms", data.PaymentStructure.PaymentTerms},
		{"Billing cycle", data.RevenueClassification.BillingCycle},
		{"Renewal terms", data.RevenueClassification.RenewalTerms},
	}
	for _, r := range rows {
		label := colorize(colorBold, fmt.Sprintf("%-14s", r.label+":"))
		if r.c == nil {
			fmt.Fprintf(w, "  %s %s\n", label, colorize(colorYellow, "(not found)"))
			continue
		}
		fmt.Fprintf(w, "  %s %s [%.2f]\n", label, consolidate.DisplayValue(r.c), r.c.Confidence)
	}
	if len(gaps) == 0 {
		fmt.Fprintln(w, "\nNo gaps.")
		return
	}
	fmt.Fprintf(w, "\nGaps (%d): %s\n", len(gaps), strings.Join(gaps, ", "))
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>...",
	Short: "Upload contracts for processing",
	Long: `Upload one or more contract PDFs to the running server.

Examples:
  contractd upload ./msa.pdf
  contractd upload --wait ./msa.pdf ./order-form.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var failed int
		for _, path := range args {
			resp, err := client.upload(cmd.Context(), path)
			if err != nil {
				printError("%s: %v", path, err)
				failed++
				continue
			}
			var up api.UploadResponse
			if err := decodeJSON(resp, &up); err != nil {
				printError("%s: %v", path, err)
				failed++
				continue
			}
			printSuccess("Uploaded %s as %s", path, up.ContractID)

			if wait {
				st, err := waitForContract(cmd.Context(), client, up.ContractID, time.Second)
				if err != nil {
					printError("%s: %v", up.ContractID, err)
					failed++
					continue
				}
				printContractStatus(st)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().Bool("wait", false, "wait for processing to finish")
}

// waitForContract polls the status endpoint until the contract is terminal.
func waitForContract(ctx context.Context, client *apiClient, id string, every time.Duration) (api.StatusResponse, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		st, err := fetchStatus(ctx, client, id)
		if err != nil {
			return st, err
		}
		if st.Status == "completed" || st.Status == "error" {
			return st, nil
		}
		printStep("%s: %d%% %s", id, st.ProgressPercent, st.ProgressMessage)
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func fetchStatus(ctx context.Context, client *apiClient, id string) (api.StatusResponse, error) {
	var st api.StatusResponse
	resp, err := client.get(ctx, "/api/v1/contracts/"+url.PathEscape(id)+"/status")
	if err != nil {
		return st, err
	}
	err = decodeJSON(resp, &st)
	return st, err
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show processing status of a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		st, err := fetchStatus(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		if ok, err := writeStructured(os.Stdout, outputFormat, st); ok {
			return err
		}
		printContractStatus(st)
		return nil
	},
}

func printContractStatus(st api.StatusResponse) {
	status := st.Status
	switch st.Status {
	case "completed":
		status = colorize(colorGreen, status)
	case "error":
		status = colorize(colorRed, status)
	}
	printStatus("Contract", "%s", st.ContractID)
	printStatus("Status", "%s (%d%%)", status, st.ProgressPercent)
	printStatus("Progress", "%s", st.ProgressMessage)
	if st.ErrorMessage != nil {
		printStatus("Error", "%s", *st.ErrorMessage)
	}
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show extracted data of a completed contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/v1/contracts/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var data api.ContractDataResponse
		if err := decodeJSON(resp, &data); err != nil {
			return err
		}
		if ok, err := writeStructured(os.Stdout, outputFormat, data); ok {
			return err
		}

		var extracted consolidate.ExtractedData
		if err := json.Unmarshal(data.ExtractedData, &extracted); err != nil {
			return fmt.Errorf("decoding extracted data: %w", err)
		}
		fmt.Printf("%s  %s  %s\n\n",
			colorize(colorCyan, data.ContractID),
			data.FileName,
			data.UploadTimestamp.Local().Format(time.DateTime),
		)
		renderResult(os.Stdout, extracted, data.IdentifiedGaps)
		return nil
	},
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/v1/contracts?"+filterQuery(cmd).Encode())
		if err != nil {
			return err
		}
		var page api.ContractListResponse
		if err := decodeJSON(resp, &page); err != nil {
			return err
		}
		if ok, err := writeStructured(os.Stdout, outputFormat, page); ok {
			return err
		}

		if len(page.Items) == 0 {
			fmt.Println("No contracts found.")
			return nil
		}
		for _, c := range page.Items {
			fmt.Printf("%s  %-10s  %2d gaps  %s  %s\n",
				colorize(colorCyan, c.ContractID[:min(8, len(c.ContractID))]),
				c.Status,
				c.GapsCount,
				c.UploadTimestamp.Local().Format(time.DateTime),
				c.FileName,
			)
		}
		fmt.Printf("\nPage %d, %s of %d\n", page.Page, itemsLabel(len(page.Items)), page.TotalItems)
		return nil
	},
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("q", "", "search words (all must match)")
	cmd.Flags().String("file-name", "", "file name substring")
	cmd.Flags().String("from", "", "uploaded on or after (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("to", "", "uploaded on or before (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("sort-by", "", "upload_timestamp, file_name or processing_status")
	cmd.Flags().Bool("asc", false, "sort ascending")
}

// filterQuery maps the filter flags onto the list/export query string.
// Unset flags are omitted.
func filterQuery(cmd *cobra.Command) url.Values {
	v := url.Values{}
	set := func(flag, param string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(param, f.Value.String())
		}
	}
	set("q", "q")
	set("file-name", "file_name")
	set("from", "start_date")
	set("to", "end_date")
	set("sort-by", "sort_by")
	set("status", "status")
	set("page", "page")
	set("size", "size")
	if asc, _ := cmd.Flags().GetBool("asc"); asc {
		v.Set("sort_order", "asc")
	}
	return v
}

func itemsLabel(n int) string {
	if n == 1 {
		return "1 item"
	}
	return strconv.Itoa(n) + " items"
}

func init() {
	addFilterFlags(listCmd)
	listCmd.Flags().String("status", "", "processing, completed or error")
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("size", 10, "page size (max 100)")
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export completed contracts as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/v1/contracts/export?"+filterQuery(cmd).Encode())
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("creating output file: %w", err)
		}
		n, err := copyBody(resp, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(out)
			return err
		}
		printSuccess("Wrote %s (%d bytes)", out, n)
		return nil
	},
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().String("out", "contracts.xlsx", "output file path")
}

// --- download ---

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download the original PDF of a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = args[0] + ".pdf"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/v1/contracts/"+url.PathEscape(args[0])+"/download")
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("creating output file: %w", err)
		}
		_, err = copyBody(resp, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(out)
			return err
		}
		printSuccess("Saved %s", out)
		return nil
	},
}

func init() {
	downloadCmd.Flags().String("out", "", "output file path (default: <id>.pdf)")
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed API token from api.jwt_secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.API.JWTSecret == "" {
			return fmt.Errorf("api.jwt_secret is not set (use %s_API_JWT_SECRET)", config.EnvPrefix)
		}
		token, err := api.IssueToken([]byte(cfg.API.JWTSecret), subject, ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("subject", "cli", "token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		if outputFormat != "text" {
			m := make(map[string]string, len(keys))
			for _, k := range keys {
				m[k.Key] = k.Value
			}
			_, err := writeStructured(os.Stdout, outputFormat, m)
			return err
		}
		for _, k := range keys {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nValid keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		path := configPath
		if path == "" {
			path = config.DefaultConfigFile()
		}
		if err := config.SetKey(path, key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s in %s", key, value, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
