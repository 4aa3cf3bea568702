package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15T14:30:00Z" doc:"Build timestamp"`
	Modified  bool   `json:"modified" example:"false" doc:"Built from a dirty working tree"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// LED status models
type LEDStatusData struct {
	State       string  `json:"state" enum:"uninitialized,ready,shutting_down,terminated" example:"ready" doc:"Controller lifecycle state"`
	Held        bool    `json:"held" example:"true" doc:"Whether a client session currently holds the LED"`
	Line        string  `json:"line" example:"LED1" doc:"Platform name of the LED line"`
	Polarity    string  `json:"polarity" enum:"active-low,active-high" example:"active-low" doc:"LED wiring"`
	LastCommand *string `json:"last_command,omitempty" enum:"on,off" example:"on" doc:"Last command applied since startup"`
}

type LEDStatusResponse struct {
	Body LEDStatusData
}
