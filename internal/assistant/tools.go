package assistant

// ToolDef describes one tool in a function-calling style schema, ready
// to be fed to a provider that supports tool use.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolsSchema returns the tool definitions exposed to the model.
func ToolsSchema() []ToolDef {
	return []ToolDef{
		{
			Name:        "get_status_today",
			Description: "Get today's overview: word of the day, reminder summary, and service status.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{
						"type":        "string",
						"description": "ISO date YYYY-MM-DD. Defaults to today if omitted.",
					},
				},
				"required": []string{},
			},
		},
		{
			Name:        "list_reminders",
			Description: "List all reminders and their schedules.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		{
			Name:        "create_reminder",
			Description: "Create a new reminder with a schedule.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"label":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"schedule_kind": map[string]any{
						"type": "string",
						"enum": []string{"DAILY", "WEEKLY", "ONE_OFF"},
					},
					"time_of_day": map[string]any{
						"type":        "string",
						"description": "Time in HH:MM format (24h).",
					},
					"days_of_week": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer", "minimum": 0, "maximum": 6},
						"description": "For WEEKLY reminders: 0=Monday..6=Sunday.",
					},
				},
				"required": []string{"label", "schedule_kind", "time_of_day"},
			},
		},
		{
			Name:        "mark_occurrence_done",
			Description: "Mark a reminder occurrence as DONE.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"occurrence_id": map[string]any{"type": "integer"},
				},
				"required": []string{"occurrence_id"},
			},
		},
		{
			Name:        "mark_occurrence_skipped",
			Description: "Mark a reminder occurrence as SKIPPED.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"occurrence_id": map[string]any{"type": "integer"},
				},
				"required": []string{"occurrence_id"},
			},
		},
		{
			Name:        "list_services",
			Description: "List all monitored services and their status.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		{
			Name:        "create_service",
			Description: "Register a new service to monitor.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"slug": map[string]any{"type": "string"},
					"kind": map[string]any{
						"type": "string",
						"enum": []string{"HTTP", "TCP"},
					},
					"target": map[string]any{
						"type":        "string",
						"description": "URL for HTTP or host:port for TCP.",
					},
				},
				"required": []string{"name", "slug", "kind", "target"},
			},
		},
	}
}
