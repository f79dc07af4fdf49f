package screenshot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Error messages returned to clients.
const (
	MsgNoURL               = "No url"
	MsgBadWidth            = "Bad width"
	MsgBadHeight           = "Bad height"
	MsgBadWaitUntil        = "Bad wait_until value"
	MsgCredentialsPassword = "Bad credentials: a password must be specified"
	MsgCredentialsUsername = "Bad credentials: a username must be specified"
	MsgCredentialsToken    = `Bad credentials: "token_in_header" must be specified`
)

// UnknownParameterMessage formats the error for an unrecognised key.
func UnknownParameterMessage(key string) string {
	return fmt.Sprintf("Unknown parameter: %q", key)
}

// Validated is the outcome of validation: either Params or a non-empty Errors list.
type Validated struct {
	URL    string
	Raw    RawParameters
	Params Params
	Errors []string
}

// Valid reports whether no validation error was recorded.
func (v Validated) Valid() bool {
	return len(v.Errors) == 0
}

// Validate checks raw against the recognised parameter set for the given url.
// Every check runs and errors accumulate in a fixed order.
func Validate(url string, raw RawParameters) Validated {
	return validate(url, raw, false)
}

// ValidateRequest is the mapping variant: url travels inside raw and is required.
func ValidateRequest(raw RawParameters) Validated {
	url, _ := raw.Get(ParamURL)
	s, _ := scalarString(url)
	return validate(strings.TrimSpace(s), raw, true)
}

func validate(url string, raw RawParameters, urlInMapping bool) Validated {
	v := Validated{URL: url, Raw: raw}

	if urlInMapping && url == "" {
		v.Errors = append(v.Errors, MsgNoURL)
	}

	accepted := make(map[string]any, len(raw))
	for _, p := range raw {
		switch {
		case urlInMapping && p.Key == ParamURL:
		case IsRecognised(p.Key):
			accepted[p.Key] = p.Value
		default:
			v.Errors = append(v.Errors, UnknownParameterMessage(p.Key))
		}
	}

	params := Params{}
	v.Errors = validateSizes(accepted, &params, v.Errors)
	v.Errors = validateCredentials(accepted, &params, v.Errors)
	v.Errors = validateWaitUntil(accepted, &params, v.Errors)

	for _, key := range []string{ParamSelector, ParamWaitFor} {
		raw, ok := accepted[key]
		if !ok {
			continue
		}
		s, _ := scalarString(raw)
		if key == ParamSelector {
			params.Selector = s
		} else {
			params.WaitFor = s
		}
		params.mark(key)
	}

	v.Params = params
	return v
}

func validateSizes(accepted map[string]any, params *Params, errs []string) []string {
	for _, field := range []struct {
		key string
		dst *int
		msg string
	}{
		{ParamWidth, &params.Width, MsgBadWidth},
		{ParamHeight, &params.Height, MsgBadHeight},
	} {
		raw, ok := accepted[field.key]
		if !ok || isBlank(raw) {
			continue
		}
		n, ok := parseInt(raw)
		if !ok {
			errs = append(errs, field.msg)
			continue
		}
		*field.dst = n
		params.mark(field.key)
	}
	return errs
}

func parseInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	default:
		s, ok := scalarString(v)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
}

func validateCredentials(accepted map[string]any, params *Params, errs []string) []string {
	raw, ok := accepted[ParamCredentials]
	if !ok || raw == nil {
		return errs
	}

	fields, _ := credentialFields(raw)
	_, hasUser := fields["username"]
	_, hasPass := fields["password"]
	_, hasToken := fields["token_in_header"]

	switch {
	case hasUser && !hasPass:
		return append(errs, MsgCredentialsPassword)
	case hasPass && !hasUser:
		return append(errs, MsgCredentialsUsername)
	case !hasUser && !hasPass && !hasToken:
		return append(errs, MsgCredentialsToken)
	}

	params.Credentials = &Credentials{
		Username:      fields["username"],
		Password:      fields["password"],
		TokenInHeader: fields["token_in_header"],
	}
	params.mark(ParamCredentials)
	return errs
}

// credentialFields accepts a mapping, or a string holding a JSON object.
func credentialFields(raw any) (map[string]string, bool) {
	switch t := raw.(type) {
	case map[string]string:
		return t, true
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, v := range t {
			s, _ := scalarString(v)
			out[k] = s
		}
		return out, true
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(t), &decoded); err != nil || decoded == nil {
			return nil, false
		}
		return credentialFields(decoded)
	default:
		return nil, false
	}
}

func validateWaitUntil(accepted map[string]any, params *Params, errs []string) []string {
	raw, ok := accepted[ParamWaitUntil]
	if !ok || isBlank(raw) {
		return errs
	}

	var values []string
	switch t := raw.(type) {
	case string:
		values = splitList(t)
	case []string:
		values = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return append(errs, MsgBadWaitUntil)
			}
			values = append(values, s)
		}
	default:
		return append(errs, MsgBadWaitUntil)
	}

	for _, value := range values {
		if !waitUntilValues[value] {
			return append(errs, MsgBadWaitUntil)
		}
	}

	params.WaitUntil = values
	params.mark(ParamWaitUntil)
	return errs
}

// splitList accepts "load" or the comma separated form "load,networkidle0".
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
