package config

type PushConfig struct {
	Provider string     `yaml:"provider"`
	FCM      *FCMConfig `yaml:"fcm"`
}

type FCMConfig struct {
	ProjectID   string `yaml:"project_id"`
	Credentials string `yaml:"credentials_file"`
}

func loadPushConfig() *PushConfig {
	return &PushConfig{
		Provider: getEnv("PUSH_PROVIDER", "fcm"),
		FCM: &FCMConfig{
			ProjectID:   getEnv("FCM_PROJECT_ID", ""),
			Credentials: getEnv("FCM_CREDENTIALS_FILE", ""),
		},
	}
}
