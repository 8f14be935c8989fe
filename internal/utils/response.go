// Package utils provides helpers shared by handlers and middleware.
package utils

import "github.com/labstack/echo/v4"

// JSON writes the uniform response envelope consumed by every client:
//
//	{"success": bool, "data": {...}, "errors": {...}}
//
// data is populated only for 2xx/3xx responses, errors otherwise; the split
// is determined purely by the status code range.
func JSON(c echo.Context, status int, payload any) error {
	if payload == nil {
		payload = echo.Map{}
	}
	success := status >= 200 && status < 400
	body := echo.Map{
		"success": success,
		"data":    echo.Map{},
		"errors":  echo.Map{},
	}
	if success {
		body["data"] = payload
	} else {
		body["errors"] = payload
	}
	return c.JSON(status, body)
}

// Error writes a non-2xx envelope carrying a single error message.
func Error(c echo.Context, status int, msg string) error {
	return JSON(c, status, echo.Map{"error": msg})
}
