package afip

import (
	"fmt"
	"strings"
)

// RemoteFault is a SOAP-level fault raised by an AFIP endpoint, e.g. a
// rejected login CMS. Transport failures are never wrapped in it.
type RemoteFault struct {
	Code    string
	Message string
}

func (f *RemoteFault) Error() string {
	return fmt.Sprintf("afip: fault: %s", f.Message)
}

// Err is one entry of the Errors collection AFIP embeds in business
// responses.
type Err struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

// RemoteError is raised when a structurally valid response carries a
// non-empty Errors collection. AFIP happily authorizes tickets for invalid
// key/CUIT pairs, so every business response must be checked before use.
type RemoteError struct {
	Errors []Err
}

func (e *RemoteError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d: %s", err.Code, err.Msg))
	}
	return "afip: response error: " + strings.Join(msgs, "; ")
}

// checkErrors turns a non-empty embedded error list into a RemoteError.
func checkErrors(errs []Err) error {
	if len(errs) == 0 {
		return nil
	}
	return &RemoteError{Errors: errs}
}
