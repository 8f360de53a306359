package networks

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var envRe = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`) // Searching for environment variables to substitute.

// LoadHosts reads explorer host overrides from a YAML file. Hosts left empty in
// the file keep their default value.
func LoadHosts(path string, logger *zap.Logger) (Hosts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Hosts{}, err
	}
	b = envRe.ReplaceAllFunc(b, func(m []byte) []byte {
		k := string(envRe.FindSubmatch(m)[1])
		val := os.Getenv(k)
		if val == "" {
			logger.Warn("env variable is empty during config expansion",
				zap.String("file", path),
				zap.String("var", k))
		}
		return []byte(val)
	})

	var h Hosts
	if err := yaml.Unmarshal(b, &h); err != nil {
		return Hosts{}, fmt.Errorf("%s: %w", path, err)
	}

	out := DefaultHosts
	if h.Clearnet != "" {
		out.Clearnet = h.Clearnet
	}
	if h.OnionV2 != "" {
		out.OnionV2 = h.OnionV2
	}
	if h.OnionV3 != "" {
		out.OnionV3 = h.OnionV3
	}
	return out, nil
}
