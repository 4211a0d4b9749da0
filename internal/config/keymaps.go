package config

// KeyMappings defines the key bindings of the board viewer
type KeyMappings struct {
	// Tasks
	MoveTaskLeft  string `yaml:"move_task_left"`
	MoveTaskRight string `yaml:"move_task_right"`
	MoveTaskUp    string `yaml:"move_task_up"`
	MoveTaskDown  string `yaml:"move_task_down"`
	ViewTask      string `yaml:"view_task"`

	// Lists
	MoveListLeft  string `yaml:"move_list_left"`
	MoveListRight string `yaml:"move_list_right"`

	// Navigation
	PrevList string `yaml:"prev_list"`
	NextList string `yaml:"next_list"`
	PrevTask string `yaml:"prev_task"`
	NextTask string `yaml:"next_task"`

	// Other
	Refresh  string `yaml:"refresh"`
	ShowHelp string `yaml:"show_help"`
	Quit     string `yaml:"quit"`
}

// DefaultKeyMappings returns the default key mappings
func DefaultKeyMappings() KeyMappings {
	return KeyMappings{
		MoveTaskLeft:  "H",
		MoveTaskRight: "L",
		MoveTaskUp:    "K",
		MoveTaskDown:  "J",
		ViewTask:      " ",

		MoveListLeft:  "<",
		MoveListRight: ">",

		PrevList: "h",
		NextList: "l",
		PrevTask: "k",
		NextTask: "j",

		Refresh:  "r",
		ShowHelp: "?",
		Quit:     "q",
	}
}

// applyDefaults fills in missing key mappings with defaults
func (k *KeyMappings) applyDefaults() {
	d := DefaultKeyMappings()
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&k.MoveTaskLeft, d.MoveTaskLeft},
		{&k.MoveTaskRight, d.MoveTaskRight},
		{&k.MoveTaskUp, d.MoveTaskUp},
		{&k.MoveTaskDown, d.MoveTaskDown},
		{&k.ViewTask, d.ViewTask},
		{&k.MoveListLeft, d.MoveListLeft},
		{&k.MoveListRight, d.MoveListRight},
		{&k.PrevList, d.PrevList},
		{&k.NextList, d.NextList},
		{&k.PrevTask, d.PrevTask},
		{&k.NextTask, d.NextTask},
		{&k.Refresh, d.Refresh},
		{&k.ShowHelp, d.ShowHelp},
		{&k.Quit, d.Quit},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}
