package marketdata

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SourceRegistryTestSuite struct {
	suite.Suite
}

func TestSourceRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(SourceRegistryTestSuite))
}

func (suite *SourceRegistryTestSuite) TestGetSupportedSources() {
	suite.Equal([]string{"binance", "polygon", "terminal"}, GetSupportedSources())
}

func (suite *SourceRegistryTestSuite) TestGetSourceInfo() {
	testCases := []struct {
		name         string
		displayName  string
		requiresAuth bool
	}{
		{name: "terminal", displayName: "Trading Terminal", requiresAuth: false},
		{name: "polygon", displayName: "Polygon.io", requiresAuth: true},
		{name: "binance", displayName: "Binance", requiresAuth: false},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			info, err := GetSourceInfo(tc.name)
			suite.NoError(err)
			suite.Equal(tc.name, info.Name)
			suite.Equal(tc.displayName, info.DisplayName)
			suite.Equal(tc.requiresAuth, info.RequiresAuth)
			suite.NotEmpty(info.Description)
		})
	}
}

func (suite *SourceRegistryTestSuite) TestGetSourceInfo_InvalidSource() {
	_, err := GetSourceInfo("invalid")

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
	suite.Contains(err.Error(), "unsupported source")
}

func (suite *SourceRegistryTestSuite) TestGetExportConfigSchema() {
	schema, err := GetExportConfigSchema()
	suite.NoError(err)

	var schemaMap map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &schemaMap))
	suite.Equal("object", schemaMap["type"])

	properties, ok := schemaMap["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "source")
	suite.Contains(properties, "symbols")
	suite.Contains(properties, "timeframes")
	suite.Contains(properties, "output")
	suite.ElementsMatch([]any{"symbols", "timeframes"}, schemaMap["required"])
}
