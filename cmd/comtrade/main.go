package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"uncomtrade/internal/client"
	"uncomtrade/internal/model"
	"uncomtrade/internal/params"
	"uncomtrade/internal/registry"
	"uncomtrade/internal/store"
	"uncomtrade/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "download":
		download(os.Args[2:])
	case "resolve":
		resolve(os.Args[2:])
	case "export":
		export(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: comtrade <download|resolve|export> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "download options:")
	fmt.Fprintln(os.Stderr, "  -o          output csv file (required)")
	fmt.Fprintln(os.Stderr, "  -period     period list: YYYY or YYYYMM, 'now', 'recent' or 'all' (default: recent)")
	fmt.Fprintln(os.Stderr, "  -freq       'A' annual or 'M' monthly (default: A)")
	fmt.Fprintln(os.Stderr, "  -reporter   reporter codes or names, comma-separated (default: USA)")
	fmt.Fprintln(os.Stderr, "  -partner    partner codes or names, comma-separated (default: all)")
	fmt.Fprintln(os.Stderr, "  -product    HS commodity codes, 'total' or 'all' (default: total)")
	fmt.Fprintln(os.Stderr, "  -flow       'imports' or 'exports', or a numeric rg code (default: exports)")
	fmt.Fprintln(os.Stderr, "  -human      human-readable column headings (no API messages)")
	fmt.Fprintln(os.Stderr, "  -cache-dir  directory for cached country tables (default: .)")
	fmt.Fprintln(os.Stderr, "  -db         sqlite database path (empty disables persistence)")
	fmt.Fprintln(os.Stderr, "  -no-input   never prompt; partial name matches fail")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "resolve options:")
	fmt.Fprintln(os.Stderr, "  -role       'reporter' or 'partner' (default: reporter)")
	fmt.Fprintln(os.Stderr, "  -cache-dir  directory for cached country tables (default: .)")
	fmt.Fprintln(os.Stderr, "  -no-input   never prompt; partial name matches fail")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "export options:")
	fmt.Fprintln(os.Stderr, "  -db         sqlite database path (required)")
	fmt.Fprintln(os.Stderr, "  -o          output csv file (required)")
	fmt.Fprintln(os.Stderr, "  -reporter   filter by reporter code")
	fmt.Fprintln(os.Stderr, "  -partner    filter by partner code")
}

func download(args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	output := fs.String("o", "", "output csv file")
	period := fs.String("period", "recent", "period list")
	freq := fs.String("freq", "A", "frequency")
	reporter := fs.String("reporter", "USA", "reporter codes or names")
	partner := fs.String("partner", "all", "partner codes or names")
	product := fs.String("product", "total", "commodity codes")
	flow := fs.String("flow", "exports", "trade flow")
	human := fs.Bool("human", false, "human-readable headings")
	cacheDir := fs.String("cache-dir", ".", "country table cache directory")
	dbPath := fs.String("db", "", "sqlite database path")
	noInput := fs.Bool("no-input", false, "never prompt")
	fs.Parse(args)

	if err := runDownload(*output, *period, *freq, *reporter, *partner, *product, *flow, *human, *cacheDir, *dbPath, *noInput); err != nil {
		fmt.Fprintln(os.Stderr, "download failed:", err)
		os.Exit(1)
	}
}

func runDownload(output, period, freq, reporterCSV, partnerCSV, productCSV, flow string, human bool, cacheDir, dbPath string, noInput bool) error {
	if strings.TrimSpace(output) == "" {
		return errors.New("output file is required (-o)")
	}

	ctx := context.Background()
	resolver := registry.New(registry.NewFileStore(cacheDir), buildConfirmer(noInput))

	reporters, err := params.NormalizeReporter(ctx, parseTokens(reporterCSV), resolver)
	if err != nil {
		return err
	}
	partners, err := params.NormalizePartner(ctx, parseTokens(partnerCSV), resolver)
	if err != nil {
		return err
	}
	tradeflow, err := params.NormalizeTradeflow(flow)
	if err != nil {
		return err
	}

	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := client.New().Download(ctx, client.Request{
		Period:        parseList(period),
		Frequency:     freq,
		Reporters:     reporters,
		Partners:      partners,
		Products:      parseList(productCSV),
		Tradeflow:     tradeflow,
		HumanReadable: human,
	}, output)
	if err != nil {
		if result.Message != "" {
			fmt.Fprintln(os.Stderr, "message:", result.Message)
		}
		return err
	}

	fmt.Printf("%d records downloaded and saved as %s.\n", result.Records, result.Filename)
	if result.Message != "" {
		fmt.Println("message:", result.Message)
	}

	if len(result.Rows) > 0 {
		if err := st.UpsertRecords(ctx, result.Rows); err != nil {
			return err
		}
		if strings.TrimSpace(dbPath) != "" {
			fmt.Printf("stored records=%d db=%s\n", len(result.Rows), dbPath)
		}
	}
	return nil
}

func resolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	role := fs.String("role", "reporter", "reporter or partner")
	cacheDir := fs.String("cache-dir", ".", "country table cache directory")
	noInput := fs.Bool("no-input", false, "never prompt")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: comtrade resolve [options] <country name>")
		os.Exit(2)
	}

	code, err := runResolve(fs.Arg(0), *role, *cacheDir, *noInput)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve failed:", err)
		os.Exit(1)
	}
	fmt.Println(code)
}

func runResolve(name, role, cacheDir string, noInput bool) (int, error) {
	parsed, err := parseRole(role)
	if err != nil {
		return 0, err
	}
	resolver := registry.New(registry.NewFileStore(cacheDir), buildConfirmer(noInput))
	return resolver.Resolve(context.Background(), name, parsed)
}

func export(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", "", "sqlite database path")
	output := fs.String("o", "", "output csv file")
	reporter := fs.String("reporter", "", "filter by reporter code")
	partner := fs.String("partner", "", "filter by partner code")
	fs.Parse(args)

	if err := runExport(*dbPath, *output, *reporter, *partner); err != nil {
		fmt.Fprintln(os.Stderr, "export failed:", err)
		os.Exit(1)
	}
}

func runExport(dbPath, output, reporterCode, partnerCode string) error {
	if strings.TrimSpace(dbPath) == "" {
		return errors.New("database path is required (-db)")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("output file is required (-o)")
	}

	st, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListRecords(context.Background(), reporterCode, partnerCode)
	if err != nil {
		return err
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"period", "reporter_code", "partner_code", "flow_code", "commodity_code", "trade_value"}); err != nil {
		return err
	}
	for _, record := range records {
		row := []string{
			record.Period,
			record.ReporterCode,
			record.PartnerCode,
			record.FlowCode,
			record.CommodityCode,
			strconv.FormatFloat(record.TradeValue, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("%d records exported to %s\n", len(records), output)
	return nil
}

func buildConfirmer(noInput bool) registry.Confirmer {
	if noInput {
		return registry.RejectAll()
	}
	return &registry.ConsoleConfirmer{In: os.Stdin, Out: os.Stderr}
}

func parseRole(value string) (model.Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "reporter":
		return model.RoleReporter, nil
	case "partner":
		return model.RolePartner, nil
	default:
		return "", fmt.Errorf("unknown role: %s", value)
	}
}

// parseTokens splits a reporter/partner list into country tokens. Names
// containing commas (e.g. "Rep. of Korea, Dem. People's Rep. of") can be
// separated with semicolons instead.
func parseTokens(value string) []model.CountryToken {
	separator := ","
	if strings.Contains(value, ";") {
		separator = ";"
	}
	parts := strings.Split(value, separator)
	tokens := make([]model.CountryToken, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		tokens = append(tokens, model.ParseCountryToken(trimmed))
	}
	return tokens
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		items = append(items, trimmed)
	}
	return items
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}
