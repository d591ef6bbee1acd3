package serverutils

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) *BaseResponse[T] {
	return &BaseResponse[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

type ErrorBody struct {
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func ErrorResponse(code int, message string) *BaseResponse[*ErrorBody] {
	return &BaseResponse[*ErrorBody]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

func ErrorResponseWithBody(code int, message string, body *ErrorBody) *BaseResponse[*ErrorBody] {
	res := ErrorResponse(code, message)
	res.Data = body
	return res
}
