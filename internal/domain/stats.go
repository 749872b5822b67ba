package domain

// UsageSnapshot reports cumulative process counters for the dashboard.
type UsageSnapshot struct {
	TotalRequests     int64   `json:"totalRequests"`
	ErrorRate         float64 `json:"errorRate"`
	CacheHitRate      float64 `json:"cacheHitRate"`
	LeadsFromEmbed    int64   `json:"leadsFromEmbed"`
	LeadsFromApp      int64   `json:"leadsFromApp"`
	LLMTokensConsumed int64   `json:"llmTokensConsumed"`
}

// DashboardStats combines stored lead counts with process usage counters.
type DashboardStats struct {
	TotalLeads    int64          `json:"totalLeads"`
	LeadsThisWeek int64          `json:"leadsThisWeek"`
	EmailsSent    int64          `json:"emailsSent"`
	AverageScore  float64        `json:"averageScore"`
	Usage         *UsageSnapshot `json:"usage,omitempty"`
}
