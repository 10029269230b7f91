package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

const contentTypeJSON = "application/json"

// APIResponse is the unified response format for all APIs.
// Failed responses carry Error and a machine-readable ErrorType.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// JSONResponse sends resp as JSON with the given status code
func JSONResponse(ctx *fasthttp.RequestCtx, resp APIResponse, statusCode int) {
	body, err := json.Marshal(resp)
	if err != nil {
		body = []byte(`{"success":false,"error":"failed to encode response","error_type":"internal"}`)
		statusCode = fasthttp.StatusInternalServerError
	}
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(body)
}

// JSONError is a convenience wrapper for error responses
func JSONError(ctx *fasthttp.RequestCtx, errorType, message string, statusCode int) {
	JSONResponse(ctx, APIResponse{Success: false, Error: message, ErrorType: errorType}, statusCode)
}

// JSONSuccess is a convenience wrapper for success responses with no data
func JSONSuccess(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	JSONResponse(ctx, APIResponse{Success: true, Message: message}, statusCode)
}

// JSONData is a convenience wrapper for success responses with data
func JSONData(ctx *fasthttp.RequestCtx, data interface{}, statusCode int) {
	JSONResponse(ctx, APIResponse{Success: true, Data: data}, statusCode)
}
