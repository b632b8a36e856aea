package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ManualMappingStore --dir ../domain/playermap --output domain/playermap --outpkg playermapmock --filename manual_mapping_store_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/playermap --output domain/playermap --outpkg playermapmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name StatsWriter --dir ../domain/playermap --output domain/playermap --outpkg playermapmock --filename stats_writer_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/rawdata --output domain/rawdata --outpkg rawdatamock --filename repository_mock.go
