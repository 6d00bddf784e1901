package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

const validatedBodyKey = "validatedBody"

// validationMiddleware parses and validates JSON bodies of POST routes and
// stores the result in Locals for the handler
func validationMiddleware(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Next()
	}

	path := c.Path()
	var requestType interface{}

	switch {
	case strings.HasSuffix(path, "/games"):
		requestType = &CreateGameRequest{}
	case strings.HasSuffix(path, "/moves"):
		requestType = &MoveRequest{}
	case strings.HasSuffix(path, "/undo"), strings.HasSuffix(path, "/redo"):
		requestType = &StepRequest{}
	default:
		return c.Next() // No validation for unknown endpoints
	}

	// An empty body means defaults
	if len(c.Body()) > 0 {
		if err := c.BodyParser(requestType); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid request body",
				Code:    ErrInvalidRequest,
				Details: err.Error(),
			})
		}
	}

	if errs := validate.Struct(requestType); errs != nil {
		verrs, ok := errs.(validator.ValidationErrors)
		if !ok {
			return errs
		}
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation failed",
			Code:    ErrInvalidRequest,
			Details: describe(verrs),
		})
	}

	c.Locals(validatedBodyKey, requestType)
	return c.Next()
}

func describe(errs validator.ValidationErrors) string {
	var details strings.Builder
	for _, err := range errs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch err.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", err.Field()))
		case "oneof":
			details.WriteString(fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param()))
		case "min":
			if err.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at least %s", err.Field(), err.Param()))
			}
		case "max":
			if err.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", err.Field(), err.Param()))
			}
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", err.Field(), err.Tag()))
		}
	}
	return details.String()
}

// gameIDValidator rejects malformed IDs before they reach the service
func gameIDValidator(c *fiber.Ctx) error {
	if !isValidUUID(c.Params("gameId")) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid game ID",
			Code:  ErrInvalidRequest,
		})
	}
	return c.Next()
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// body returns the validated request stored by validationMiddleware
func body[T any](c *fiber.Ctx) *T {
	if v, ok := c.Locals(validatedBodyKey).(*T); ok {
		return v
	}
	return new(T)
}
