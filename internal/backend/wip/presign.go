package wip

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"wip/internal/service"
)

// decodeUploadTarget reads a createPresignedUrl payload. The remote encodes
// "fields" and "headers" as JSON strings holding JSON objects, so both are
// validated and decoded a second time, keeping key order.
func decodeUploadTarget(data json.RawMessage) (service.UploadTarget, error) {
	protoErr := func(err error) error {
		return &service.ProtocolError{Op: "createPresignedUrl", Err: err}
	}

	if !gjson.ValidBytes(data) {
		return service.UploadTarget{}, protoErr(errors.New("invalid JSON"))
	}
	res := gjson.GetBytes(data, "createPresignedUrl")
	if !res.IsObject() {
		return service.UploadTarget{}, protoErr(errors.New("missing createPresignedUrl"))
	}

	url := res.Get("url").String()
	if url == "" {
		return service.UploadTarget{}, protoErr(errors.New("missing url"))
	}

	fields, err := decodeOrderedObject(res.Get("fields"), true)
	if err != nil {
		return service.UploadTarget{}, protoErr(fmt.Errorf("fields: %w", err))
	}
	headers, err := decodeOrderedObject(res.Get("headers"), false)
	if err != nil {
		return service.UploadTarget{}, protoErr(fmt.Errorf("headers: %w", err))
	}

	method := res.Get("method").String()
	if method == "" {
		method = http.MethodPost
	}

	return service.UploadTarget{
		URL:     url,
		Fields:  fields,
		Method:  method,
		Headers: headers,
	}, nil
}

// decodeOrderedObject accepts either a JSON string containing an object or an
// object itself, and returns its members in document order. Every member
// must be a string. A missing or null value is an error only when required
// is set.
func decodeOrderedObject(v gjson.Result, required bool) ([]service.FormField, error) {
	if !v.Exists() || v.Type == gjson.Null {
		if required {
			return nil, errors.New("missing")
		}
		return nil, nil
	}

	obj := v
	if v.Type == gjson.String {
		raw := v.String()
		if !gjson.Valid(raw) {
			return nil, fmt.Errorf("not valid JSON: %q", raw)
		}
		obj = gjson.Parse(raw)
	}
	if !obj.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", obj.Type)
	}

	var out []service.FormField
	var bad error
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			bad = fmt.Errorf("member %q is %s, want string", key.String(), value.Type)
			return false
		}
		out = append(out, service.FormField{Name: key.String(), Value: value.String()})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}
