package settings

// set by -ldflags "-X github.com/liut/campus-assistant/pkg/settings.version=..."
var version = "dev"
