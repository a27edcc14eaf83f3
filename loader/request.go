package loader

import (
	"fmt"
	"strings"

	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/resource"
)

// Property names a settable field of a URL request info.
type Property int

const (
	PropertyURL Property = iota
	PropertyMethod
	PropertyHeaders
	PropertyFollowRedirects
	PropertyRecordDownloadProgress
	PropertyRecordUploadProgress
)

var propertyNames = [...]string{
	PropertyURL:                    "url",
	PropertyMethod:                 "method",
	PropertyHeaders:                "headers",
	PropertyFollowRedirects:        "follow-redirects",
	PropertyRecordDownloadProgress: "record-download-progress",
	PropertyRecordUploadProgress:   "record-upload-progress",
}

func (p Property) String() string {
	if p >= 0 && int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return fmt.Sprintf("property(%d)", int(p))
}

// CreateRequestInfo allocates a request info defaulting to GET with
// redirects followed.
func (s *Service) CreateRequestInfo() resource.Handle {
	h := s.reg.Allocate(resource.TypeURLRequestInfo)
	if ri, ok := resource.Acquire[*resource.URLRequestInfo](s.reg, h); ok {
		ri.Value().Method = "GET"
		ri.Value().FollowRedirects = true
		ri.Release()
	}
	return h
}

// IsURLRequestInfo reports whether h is a live request info.
func (s *Service) IsURLRequestInfo(h resource.Handle) bool {
	return s.reg.GetType(h) == resource.TypeURLRequestInfo
}

// SetProperty sets one request field. String properties take a string and
// flag properties take a bool.
func (s *Service) SetProperty(h resource.Handle, prop Property, value any) error {
	ri, ok := resource.Acquire[*resource.URLRequestInfo](s.reg, h)
	if !ok {
		return s.badHandle(errors.PhaseOpen, h, resource.TypeURLRequestInfo)
	}
	defer ri.Release()
	r := ri.Value()

	switch prop {
	case PropertyURL, PropertyMethod, PropertyHeaders:
		v, ok := value.(string)
		if !ok {
			return propertyValueError(prop, value, "string")
		}
		switch prop {
		case PropertyURL:
			r.URL = v
		case PropertyMethod:
			if !validMethod(v) {
				return errors.New(errors.PhaseOpen, errors.KindInvalidInput).
					Value(v).
					Detail("invalid method").
					Build()
			}
			r.Method = strings.ToUpper(v)
		case PropertyHeaders:
			r.Headers = v
		}
	case PropertyFollowRedirects, PropertyRecordDownloadProgress, PropertyRecordUploadProgress:
		v, ok := value.(bool)
		if !ok {
			return propertyValueError(prop, value, "bool")
		}
		switch prop {
		case PropertyFollowRedirects:
			r.FollowRedirects = v
		case PropertyRecordDownloadProgress:
			r.RecordDownloadProgress = v
		case PropertyRecordUploadProgress:
			r.RecordUploadProgress = v
		}
	default:
		return errors.Unsupported(errors.PhaseOpen, prop.String())
	}
	return nil
}

// AppendDataToBody appends data to the request body.
func (s *Service) AppendDataToBody(h resource.Handle, data []byte) error {
	ri, ok := resource.Acquire[*resource.URLRequestInfo](s.reg, h)
	if !ok {
		return s.badHandle(errors.PhaseOpen, h, resource.TypeURLRequestInfo)
	}
	defer ri.Release()
	ri.Value().Body = append(ri.Value().Body, data...)
	return nil
}

func propertyValueError(prop Property, value any, want string) error {
	return errors.New(errors.PhaseOpen, errors.KindInvalidInput).
		Value(value).
		Detail("%s wants a %s, got %T", prop, want, value).
		Build()
}

// validMethod reports whether m is an HTTP token.
func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		c := m[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
