package config

type Sync struct {
	AttributeName string `env:"SYNC_ATTRIBUTE_NAME" envDefault:"dealer_name"`
	KeyPrefix     string `env:"SYNC_KEY_PREFIX" envDefault:"product_selection_"`
}
