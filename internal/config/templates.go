package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# chartwatch Configuration

[capture]
# Directory where screenshots are written (one subdirectory per symbol)
screenshot_dir = ""
# Reuse existing screenshots instead of capturing fresh ones
reuse_existing = false
# Browser analysis workspace URL (leave empty to disable browser capture)
workspace_url = ""
# Suffix appended to symbols in the workspace search box
symbol_suffix = ".bz"
# Wait after page load before interacting
page_load_wait = "8s"
# Wait for charts to render before capturing
chart_render_wait = "12s"
# Mean RGB above this value on every channel marks a frame as blank
blank_threshold = 240.0

# Chart views to capture. Views without a command use the browser
# workspace; a command runs externally with {symbol} and {output}
# placeholders.
[[capture.views]]
name = "trend_analysis"
enabled = true
command = ""

[[capture.views]]
name = "heiken_ashi"
enabled = true
command = ""

[[capture.views]]
name = "volume_layout"
enabled = true
command = ""

[[capture.views]]
name = "utbot"
enabled = true
command = ""

[[capture.views]]
name = "workspace"
enabled = true
command = ""

[schedule]
# Run continuously during market hours
enabled = false
# Seconds between analysis runs inside the market window
interval_seconds = 3600
# Market timezone
timezone = "US/Eastern"
# Market window (HH:MM, local to the timezone above)
market_open = "09:30"
market_close = "16:00"
# Minutes between checks while the market is closed
recheck_minutes = 5

[report]
# Write multi_provider_analysis.html per symbol
html_enabled = true
# Write combined_analysis_latest.txt per symbol
text_enabled = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = false
# Notification level: all, alerts_only, errors_only
level = "alerts_only"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""
`

const credentialsTemplate = `# chartwatch Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""

[anthropic]
api_key = ""

[google]
api_key = ""

[perplexity]
api_key = ""

[grok]
api_key = ""
`

const providersTemplate = `# chartwatch Provider Configuration

# Provider used to consolidate the individual analyses
consolidation_provider = "google"
# Average trend-change probability (0-100) above which an email alert
# is considered even without an explicit consolidator decision
email_alert_threshold = 70.0
# Sampling temperature for analysis requests
temperature = 0.2
# Maximum response tokens
max_tokens = 4000

[openai]
enabled = true
model = "gpt-4o"

[anthropic]
enabled = true
model = "claude-sonnet-4-20250514"

[google]
enabled = true
model = "gemini-2.0-flash"

[perplexity]
enabled = false
model = "sonar-pro"

[grok]
enabled = false
model = "grok-2-vision-1212"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return fmt.Errorf("credentials file not found, created template at %s", path)
}

func createTemplateProvidersConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "providers.toml")
	if err := os.WriteFile(path, []byte(providersTemplate), 0644); err != nil {
		return fmt.Errorf("writing providers template: %w", err)
	}

	return fmt.Errorf("providers config file not found, created template at %s", path)
}
