// Package rest holds the resty setup shared by the http adapters.
package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

func NewClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")
}

// ErrorResponse is the json error body both BTCPay and NBXplorer reply
// with.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Error struct {
	Method string
	Path   string
	Status int
	Body   ErrorResponse
}

func (e *Error) Error() string {
	if len(e.Body.Message) > 0 {
		return fmt.Sprintf(
			"%s %s failed with status %d: %s (%s)",
			e.Method, e.Path, e.Status, e.Body.Message, e.Body.Code,
		)
	}
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.Status)
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// Do sends the request, decoding error bodies, and turns non 2xx replies
// into *Error.
func Do(req *resty.Request, method, path string) error {
	resp, err := req.SetError(&ErrorResponse{}).Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode()}
	if e, ok := resp.Error().(*ErrorResponse); ok && e != nil {
		apiErr.Body = *e
	}
	return apiErr
}
