package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/mocks"
	"github.com/rxtech-lab/rates-export/pkg/marketdata"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"
)

type ExtractCLITestSuite struct {
	suite.Suite
	tempDir string
	bridge  *httptest.Server
}

func TestExtractCLISuite(t *testing.T) {
	suite.Run(t, new(ExtractCLITestSuite))
}

func (suite *ExtractCLITestSuite) SetupTest() {
	suite.T().Setenv(marketdata.EnvBridgeURL, "")
	suite.T().Setenv(marketdata.EnvBridgeToken, "")
	suite.T().Setenv(marketdata.EnvPolygonApiKey, "")
	suite.tempDir = suite.T().TempDir()

	router := mux.NewRouter()
	router.HandleFunc("/initialize", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)
	router.HandleFunc("/rates/range", func(w http.ResponseWriter, r *http.Request) {
		timeframe, err := types.ParseTimeframe(r.URL.Query().Get("timeframe"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mocks.GenerateSeries(timeframe, 3))
	}).Methods(http.MethodGet)
	router.HandleFunc("/shutdown", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	suite.bridge = httptest.NewServer(router)
}

func (suite *ExtractCLITestSuite) TearDownTest() {
	suite.bridge.Close()
}

func (suite *ExtractCLITestSuite) run(args ...string) (string, error) {
	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(context.Background(), append([]string{"extract"}, args...))

	return out.String(), err
}

func (suite *ExtractCLITestSuite) TestExportSingleFile() {
	path := filepath.Join(suite.tempDir, "data", "x.parquet")

	out, err := suite.run("export",
		"--bridge-url", suite.bridge.URL,
		"-s", "WDO$", "-s", "WIN$",
		"-t", "M1", "-t", "D1",
		"-o", path,
		"--log-level", "error",
	)
	suite.Require().NoError(err)
	suite.Contains(out, "File saved to: "+path)

	stats, err := writer.Stats(context.Background(), path)
	suite.Require().NoError(err)
	suite.Equal(int64(12), stats.TotalRows)
	suite.Len(stats.Series, 4)
}

func (suite *ExtractCLITestSuite) TestExportFromConfigWithFlagOverride() {
	configPath := filepath.Join(suite.tempDir, "export.yaml")
	config := fmt.Sprintf(`source:
  type: terminal
  bridge_url: %q
symbols: [PETR4, VALE3]
timeframes: [H1]
output:
  path: %q
  compression: zstd
`, suite.bridge.URL, filepath.Join(suite.tempDir, "ignored.parquet"))
	suite.Require().NoError(os.WriteFile(configPath, []byte(config), 0644))

	root := filepath.Join(suite.tempDir, "tree")
	_, err := suite.run("export", "--config", configPath, "-o", root, "-p", "ticket", "--log-level", "error")
	suite.Require().NoError(err)

	entries, err := os.ReadDir(root)
	suite.Require().NoError(err)

	var dirs []string
	for _, entry := range entries {
		dirs = append(dirs, entry.Name())
	}
	suite.ElementsMatch([]string{"ticket=PETR4", "ticket=VALE3"}, dirs)

	_, statErr := os.Stat(filepath.Join(suite.tempDir, "ignored.parquet"))
	suite.True(os.IsNotExist(statErr))
}

func (suite *ExtractCLITestSuite) TestExportFlagsCompleteConfig() {
	configPath := filepath.Join(suite.tempDir, "partial.yaml")
	config := fmt.Sprintf(`source:
  type: terminal
  bridge_url: %q
timeframes: [H1]
`, suite.bridge.URL)
	suite.Require().NoError(os.WriteFile(configPath, []byte(config), 0644))

	path := filepath.Join(suite.tempDir, "partial.parquet")
	out, err := suite.run("export", "--config", configPath, "-s", "WDO", "-o", path, "--log-level", "error")
	suite.Require().NoError(err)
	suite.Contains(out, "File saved to: "+path)

	stats, err := writer.Stats(context.Background(), path)
	suite.Require().NoError(err)
	suite.Require().Len(stats.Series, 1)
	suite.Equal("WDO", stats.Series[0].Ticket)
	suite.Equal("H1", stats.Series[0].Timeframe)
}

func (suite *ExtractCLITestSuite) TestExportIncompleteConfigWithoutFlags() {
	configPath := filepath.Join(suite.tempDir, "partial.yaml")
	suite.Require().NoError(os.WriteFile(configPath, []byte("timeframes: [H1]\n"), 0644))

	_, err := suite.run("export", "--config", configPath, "--log-level", "error")
	suite.Error(err)
	suite.Contains(err.Error(), "Symbols")
}

func (suite *ExtractCLITestSuite) TestExportInvalidTimeframe() {
	_, err := suite.run("export", "--bridge-url", suite.bridge.URL, "-s", "WDO$", "-t", "M2", "-o", filepath.Join(suite.tempDir, "x.parquet"))
	suite.Error(err)
	suite.Contains(err.Error(), "unsupported timeframe")
}

// loadOnly runs loadConfig against a fresh copy of the export flags.
func loadOnly(args ...string) (*marketdata.ExportConfig, error) {
	var loaded *marketdata.ExportConfig

	cmd := &cli.Command{
		Name:  "export",
		Flags: newApp().Commands[0].Flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			var err error
			loaded, err = loadConfig(cmd)

			return err
		},
	}

	err := cmd.Run(context.Background(), append([]string{"export"}, args...))

	return loaded, err
}

func (suite *ExtractCLITestSuite) TestLoadConfigPrecedence() {
	suite.T().Setenv(marketdata.EnvBridgeURL, "http://from-env:8228")

	loaded, err := loadOnly("-s", "WDO$", "-t", "M5", "-o", "out.parquet")
	suite.Require().NoError(err)
	suite.Equal("http://from-env:8228", loaded.Source.BridgeURL)
	suite.True(loaded.PartitionColumns().IsNone())

	loaded, err = loadOnly("-s", "WDO$", "-t", "M5", "-o", "out.parquet", "--bridge-url", "http://from-flag:8228")
	suite.Require().NoError(err)
	suite.Equal("http://from-flag:8228", loaded.Source.BridgeURL)
	suite.Equal([]string{"WDO$"}, loaded.Symbols)
}

func (suite *ExtractCLITestSuite) TestInspect() {
	path := filepath.Join(suite.tempDir, "inspect.parquet")
	_, err := suite.run("export", "--bridge-url", suite.bridge.URL, "-s", "WDO$", "-t", "M5", "-o", path, "--log-level", "error")
	suite.Require().NoError(err)

	out, err := suite.run("inspect", path)
	suite.Require().NoError(err)
	suite.Contains(out, "TICKET")
	suite.Contains(out, "WDO$")
	suite.Contains(out, "M5")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	suite.Contains(lines[len(lines)-1], "TOTAL")
	suite.Contains(lines[len(lines)-1], "3")
}

func (suite *ExtractCLITestSuite) TestInspectRequiresPath() {
	_, err := suite.run("inspect")
	suite.Error(err)
}

func (suite *ExtractCLITestSuite) TestSchema() {
	out, err := suite.run("schema")
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(out), &schema))
	suite.Contains(schema, "properties")
}

func (suite *ExtractCLITestSuite) TestTimeframes() {
	out, err := suite.run("timeframes")
	suite.Require().NoError(err)

	for _, tf := range types.AllTimeframes() {
		suite.Contains(out, tf.Label())
	}

	suite.Contains(out, "16385")
	suite.Contains(out, "49153")
}

func (suite *ExtractCLITestSuite) TestVersion() {
	out, err := suite.run("version")
	suite.Require().NoError(err)
	suite.Contains(out, "bridge API 1.0.0")
}

func (suite *ExtractCLITestSuite) TestInitWritesSchemaAndSample() {
	dir := filepath.Join(suite.tempDir, "config")

	out, err := suite.run("init", "--dir", dir)
	suite.Require().NoError(err)
	suite.Contains(out, "Sample config written to")

	schema, err := os.ReadFile(filepath.Join(dir, schemaFileName))
	suite.Require().NoError(err)
	suite.True(json.Valid(schema))

	sample, err := os.ReadFile(filepath.Join(dir, sampleFileName))
	suite.Require().NoError(err)
	suite.True(strings.HasPrefix(string(sample), "# yaml-language-server: $schema="+schemaFileName))

	loaded, err := marketdata.LoadExportConfig(filepath.Join(dir, sampleFileName))
	suite.Require().NoError(err)
	suite.Equal([]string{"WDO$", "WIN$"}, loaded.Symbols)
	suite.Equal([]string{"M1", "D1"}, loaded.Timeframes)
}

func (suite *ExtractCLITestSuite) TestInitKeepsExistingSample() {
	dir := filepath.Join(suite.tempDir, "config")
	suite.Require().NoError(os.MkdirAll(dir, 0755))
	samplePath := filepath.Join(dir, sampleFileName)
	suite.Require().NoError(os.WriteFile(samplePath, []byte("symbols: [PETR4]\n"), 0644))

	out, err := suite.run("init", "--dir", dir)
	suite.Require().NoError(err)
	suite.NotContains(out, "Sample config written to")

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("symbols: [PETR4]\n", string(content))
}

func (suite *ExtractCLITestSuite) TestBrowseRequiresPath() {
	_, err := suite.run("browse")
	suite.Error(err)
}
