package sumit

import "fmt"

/* Environment selects which gateway host the client talks to
 * Production and Test share the HTTPS production host; Development uses
 * the plain HTTP dev host
 */
type Environment int

const (
	Production Environment = iota + 1
	Development
	Test
)

const (
	productionBaseURL  = "https://api.sumit.co.il"
	developmentBaseURL = "http://dev.api.sumit.co.il"
)

// String returns the configuration value for the environment
func (e Environment) String() string {
	switch e {
	case Production:
		return "www"
	case Development:
		return "dev"
	case Test:
		return "test"
	default:
		return "unknown"
	}
}

// NewEnvironment creates an Environment from its configuration value
func NewEnvironment(str string) (Environment, error) {
	switch str {
	case "www", "":
		return Production, nil
	case "dev":
		return Development, nil
	case "test":
		return Test, nil
	default:
		return 0, fmt.Errorf("invalid environment: %q", str)
	}
}

// Validate checks if the environment is valid
func (e Environment) Validate() error {
	if e < Production || e > Test {
		return fmt.Errorf("invalid environment: %d", e)
	}
	return nil
}

// BaseURL returns the scheme and host for the environment
func (e Environment) BaseURL() string {
	if e == Development {
		return developmentBaseURL
	}
	return productionBaseURL
}
