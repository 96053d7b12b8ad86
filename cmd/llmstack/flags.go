package main

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// StartFlags holds flags for the start command.
type StartFlags struct {
	NoUI bool
}

// StopFlags holds flags for the stop command.
type StopFlags struct {
	Force bool
}

// SetupFlags holds flags for the setup command.
type SetupFlags struct {
	SkipModel bool
}
