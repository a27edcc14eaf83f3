package loader

import (
	"fmt"

	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/resource"
)

// ResponseProperty names a readable field of a URL response info.
type ResponseProperty int

const (
	ResponseURL ResponseProperty = iota
	ResponseStatusCode
	ResponseStatusLine
	ResponseHeaders
	ResponseRedirectURL
)

var responsePropertyNames = [...]string{
	ResponseURL:         "url",
	ResponseStatusCode:  "status-code",
	ResponseStatusLine:  "status-line",
	ResponseHeaders:     "headers",
	ResponseRedirectURL: "redirect-url",
}

func (p ResponseProperty) String() string {
	if p >= 0 && int(p) < len(responsePropertyNames) {
		return responsePropertyNames[p]
	}
	return fmt.Sprintf("response-property(%d)", int(p))
}

// IsURLResponseInfo reports whether h is a live response info.
func (s *Service) IsURLResponseInfo(h resource.Handle) bool {
	return s.reg.GetType(h) == resource.TypeURLResponseInfo
}

// GetResponseProperty reads prop from the loader behind response info h.
// StatusCode is returned as int32, everything else as string.
func (s *Service) GetResponseProperty(h resource.Handle, prop ResponseProperty) (any, error) {
	info, ok := resource.Acquire[*resource.URLResponseInfo](s.reg, h)
	if !ok {
		return nil, s.badHandle(errors.PhaseAcquire, h, resource.TypeURLResponseInfo)
	}
	parent := s.reg.Parent(h)
	info.Release()

	ul, ok := resource.Acquire[*resource.URLLoader](s.reg, parent)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseAcquire, int32(parent))
	}
	defer ul.Release()
	l := ul.Value()

	switch prop {
	case ResponseURL:
		return l.URL, nil
	case ResponseStatusCode:
		return l.StatusCode, nil
	case ResponseStatusLine:
		return l.StatusLine, nil
	case ResponseHeaders:
		return l.Headers, nil
	case ResponseRedirectURL:
		return l.RedirectURL, nil
	}
	return nil, errors.Unsupported(errors.PhaseAcquire, prop.String())
}

// GetBodyAsFileRef is not supported; bodies are read through the loader.
func (s *Service) GetBodyAsFileRef(h resource.Handle) (resource.Handle, error) {
	return resource.InvalidHandle, errors.Unsupported(errors.PhaseAcquire, "body as file ref")
}
