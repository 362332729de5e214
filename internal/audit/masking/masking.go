package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a Stripe key or secret, keeping its type prefix
// (sk_live_, whsec_) and the last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskFields returns a copy of input where the string values under
// secretKeys are masked. Other values are kept as-is.
func MaskFields(input map[string]any, secretKeys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	secret := make(map[string]struct{}, len(secretKeys))
	for _, key := range secretKeys {
		secret[key] = struct{}{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := secret[trimmedKey]; ok {
			masked[trimmedKey] = maskValue(value)
			continue
		}
		masked[trimmedKey] = value
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case *string:
		if cast == nil {
			return nil
		}
		return MaskSecret(*cast)
	default:
		return maskToken
	}
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
