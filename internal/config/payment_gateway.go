package config

type PaymentConfig struct {
	DefaultProvider string        `yaml:"default_provider"`
	Stripe          *StripeConfig `yaml:"stripe"`
	Currency        string        `yaml:"currency"`
	// UnlockPrice is the contact unlock price in the currency's minor
	// unit (öre for SEK).
	UnlockPrice int64 `yaml:"unlock_price"`
}

type StripeConfig struct {
	PublishableKey string `yaml:"publishable_key"`
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	SuccessURL     string `yaml:"success_url"`
	CancelURL      string `yaml:"cancel_url"`
}

func loadPaymentConfig() *PaymentConfig {
	return &PaymentConfig{
		DefaultProvider: getEnv("PAYMENT_DEFAULT_PROVIDER", "stripe"),
		Stripe: &StripeConfig{
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:     getEnv("STRIPE_SUCCESS_URL", "http://localhost:8080/unlock/success"),
			CancelURL:      getEnv("STRIPE_CANCEL_URL", "http://localhost:8080/unlock/cancel"),
		},
		Currency:    getEnv("PAYMENT_CURRENCY", "SEK"),
		UnlockPrice: getEnvAsInt64("PAYMENT_UNLOCK_PRICE", 2900),
	}
}
