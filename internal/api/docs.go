package api

// @title genv API
// @version 1.0
// @description A shared environment variable table. Every request must
// @description carry the shared secret in the X-Secret header.
// @host localhost:3000
// @BasePath /

// @securityDefinitions.apikey SharedSecret
// @in header
// @name X-Secret

// @tag.name Variables
// @tag.description Reading and writing variables

// @summary Get a variable
// @description Returns the raw value of one variable, named either by the
// @description single path segment or by the single name query parameter
// @tags Variables
// @security SharedSecret
// @produce plain
// @param name path string false "Variable name"
// @param name query string false "Variable name"
// @success 200 {string} string "The value"
// @failure 400 {object} ErrorResponse "Unknown variable or malformed request"
// @failure 401 {object} ErrorResponse "Missing or incorrect secret"
// @router /get/{name} [get]

// @summary Set variables
// @description Sets every name=value pair of the query string as one batch.
// @description The batch is written to the snapshot before the response.
// @tags Variables
// @security SharedSecret
// @produce plain
// @success 200 {string} string "State updated"
// @failure 400 {object} ErrorResponse "Empty batch or a name given more than once"
// @failure 401 {object} ErrorResponse "Missing or incorrect secret"
// @failure 500 {object} ErrorResponse "Snapshot could not be written"
// @router /set [get]

// @summary List variables
// @description Returns every variable as a JSON object ordered by name
// @tags Variables
// @security SharedSecret
// @produce json
// @success 200 {object} map[string]string "All variables"
// @failure 401 {object} ErrorResponse "Missing or incorrect secret"
// @router /all [get]

// @summary Health check
// @description Served on the ops listener only
// @tags Health
// @produce json
// @success 200 {object} map[string]any "All components ok"
// @failure 503 {object} map[string]any "A component failed"
// @router /healthz [get]
