package colors

// ColorScheme defines all configurable color values
type ColorScheme struct {
	// Preset name (e.g., "default", "monochrome")
	Preset string `yaml:"preset"`

	// Primary accent color (used for selections, titles, highlights)
	Accent string `yaml:"accent"`

	// Board elements
	ListBorder     string `yaml:"list_border"`
	TaskBorder     string `yaml:"task_border"`
	SelectedBorder string `yaml:"selected_border"`
	PendingBorder  string `yaml:"pending_border"` // optimistic moves awaiting the server

	// Text colors
	Title  string `yaml:"title"`
	Subtle string `yaml:"subtle"`
	Normal string `yaml:"normal"`

	// Notification colors (foreground/background pairs)
	InfoFg    string `yaml:"info_fg"`
	InfoBg    string `yaml:"info_bg"`
	WarningFg string `yaml:"warning_fg"`
	WarningBg string `yaml:"warning_bg"`
	ErrorFg   string `yaml:"error_fg"`
	ErrorBg   string `yaml:"error_bg"`
}

// GetPreset returns a preset color scheme by name, falling back to the default
func GetPreset(name string) *ColorScheme {
	if name == "monochrome" {
		return Monochrome()
	}
	return Default()
}

// ApplyDefaults fills in missing color values from the named preset
func (c *ColorScheme) ApplyDefaults() {
	preset := GetPreset(c.Preset)
	if c.Preset == "" {
		c.Preset = preset.Preset
	}

	for _, f := range []struct {
		dst *string
		def string
	}{
		{&c.Accent, preset.Accent},
		{&c.ListBorder, preset.ListBorder},
		{&c.TaskBorder, preset.TaskBorder},
		{&c.SelectedBorder, preset.SelectedBorder},
		{&c.PendingBorder, preset.PendingBorder},
		{&c.Title, preset.Title},
		{&c.Subtle, preset.Subtle},
		{&c.Normal, preset.Normal},
		{&c.InfoFg, preset.InfoFg},
		{&c.InfoBg, preset.InfoBg},
		{&c.WarningFg, preset.WarningFg},
		{&c.WarningBg, preset.WarningBg},
		{&c.ErrorFg, preset.ErrorFg},
		{&c.ErrorBg, preset.ErrorBg},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}
