package mocks

//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/rxtech-lab/rates-export/pkg/marketdata/source Source
//go:generate mockgen -destination=./mock_writer.go -package=mocks github.com/rxtech-lab/rates-export/pkg/marketdata/writer DatasetWriter
