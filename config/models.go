package config

// Config holds the configuration of the application
// Use cmd.NewConfig to create a new instance
type Config struct {
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Search     SearchConfig     `mapstructure:"search"`
	Store      StoreConfig      `mapstructure:"store"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	DataConfig DataConfig       `mapstructure:"data"`
}

// EmbeddingsConfig configures the image embedding pipeline. Dimensions must
// match the linear head of the model served at ServiceURL.
type EmbeddingsConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Dimensions int    `mapstructure:"dimensions"`
	ImageSize  int    `mapstructure:"image_size"`
}

// SearchConfig configures the similarity query. MinScore is a percentage
// in [0,100]; matches scoring below it are dropped. Zero disables the
// threshold.
type SearchConfig struct {
	Limit    int     `mapstructure:"limit"`
	MinScore float64 `mapstructure:"min_score"`
}

type StoreConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	DSN              string           `mapstructure:"dsn"`
	AvailableIndexes AvailableIndexes `mapstructure:"available_indexes"`
}

type AvailableIndexes struct {
	IVFFLAT bool `mapstructure:"ivfflat"`
	HSNW    bool `mapstructure:"hnsw"`
}

type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	MaxRequestSize int64  `mapstructure:"max_request_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	Required bool   `mapstructure:"required"`
}

type DataConfig struct {
	// PurgeEvery is the period between hard deletes of soft-deleted rows,
	// in minutes. If set to 0, hard deletes are not performed.
	PurgeEvery int `mapstructure:"purge_every"`
}
