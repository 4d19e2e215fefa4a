package eq

// engineVersion tracks the wire protocol major version.
const engineVersion = "2.0.0"

// Version returns the engine version string.
func Version() string {
	return engineVersion
}
