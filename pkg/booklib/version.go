package booklib

// Version is the release version printed by the CLI.
const Version = "0.3.0"
