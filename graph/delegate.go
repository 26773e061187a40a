package graph

import "net/http"

// RequestDelegate follows a request through its lifecycle. Callbacks run on
// the goroutine that called Connect.
type RequestDelegate interface {
	// RequestLoading is called just before the request is sent.
	RequestLoading(r *Request)
	// DidReceiveResponse is called when the server responds, before the body is read.
	DidReceiveResponse(r *Request, resp *http.Response)
	// DidFailWithError is called when the request failed to load or the server returned an error.
	DidFailWithError(r *Request, err error)
	// DidLoad is called with the decoded response: a map, slice, number,
	// bool or nil for JSON bodies, the body as a string otherwise.
	DidLoad(r *Request, result any)
	// DidLoadRawResponse is called with the undecoded body before DidLoad or DidFailWithError.
	DidLoadRawResponse(r *Request, body []byte)
}

// RequestDelegateFuncs implements RequestDelegate with optional callbacks.
type RequestDelegateFuncs struct {
	OnLoading         func(r *Request)
	OnResponse        func(r *Request, resp *http.Response)
	OnFailWithError   func(r *Request, err error)
	OnLoad            func(r *Request, result any)
	OnLoadRawResponse func(r *Request, body []byte)
}

var _ RequestDelegate = RequestDelegateFuncs{}

func (d RequestDelegateFuncs) RequestLoading(r *Request) {
	if d.OnLoading != nil {
		d.OnLoading(r)
	}
}

func (d RequestDelegateFuncs) DidReceiveResponse(r *Request, resp *http.Response) {
	if d.OnResponse != nil {
		d.OnResponse(r, resp)
	}
}

func (d RequestDelegateFuncs) DidFailWithError(r *Request, err error) {
	if d.OnFailWithError != nil {
		d.OnFailWithError(r, err)
	}
}

func (d RequestDelegateFuncs) DidLoad(r *Request, result any) {
	if d.OnLoad != nil {
		d.OnLoad(r, result)
	}
}

func (d RequestDelegateFuncs) DidLoadRawResponse(r *Request, body []byte) {
	if d.OnLoadRawResponse != nil {
		d.OnLoadRawResponse(r, body)
	}
}
