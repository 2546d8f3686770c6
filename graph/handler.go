package graph

import (
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/labstack/echo/v4"

	"policygen/main_backend/apperr"
)

// Request is the JSON body of a GraphQL POST.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes GraphQL requests against schema. Resolver errors are part
// of a 200 response, as GraphQL clients expect; only unreadable requests get
// a 400.
func Handler(schema graphql.Schema) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Request
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Query) == "" {
			e := apperr.Validation("request body must be a JSON object with a query")
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"errors": []map[string]interface{}{{"message": e.Message, "extensions": e.Extensions()}},
			})
		}

		res := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Request().Context(),
		})
		return c.JSON(http.StatusOK, res)
	}
}
