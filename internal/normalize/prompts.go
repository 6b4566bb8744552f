package normalize

import "fmt"

// The exact JSON structure the model must always return. Every field must be
// present; missing data is null, never an omitted key. For informational logs
// the entire "error" block is null.
const normalizedLogSchema = `
{
  "log_type": "error | informational",

  "flow": {
    "code":         "string | null",
    "version":      "string | null",
    "type":         "number | null",
    "trigger_type": "rest | soap | scheduled | null",
    "operation":    "string | null",
    "timestamp":    "ISO 8601 string | null"
  },

  "user": {
    "id": "string | null"
  },

  "tracking_variables": {
    "primary_key": { "name": "string | null", "value": "string | null" },
    "secondary":   [ { "name": "string", "value": "string" } ]
  },

  "error": {
    "code":           "string | null",
    "state":          "number | null",
    "summary":        "string | null",
    "message_parsed": {
      "http_status":       "number | null",
      "root_cause":        "string | null",
      "failed_url":        "string | null",
      "error_description": "string | null"
    },
    "endpoint_name":       "string | null",
    "endpoint_type":       "string | null",
    "operation":           "string | null",
    "milestone":           "string | null",
    "retry_count":         "number | null",
    "auto_retriable":      "boolean | null",
    "business_error_name": "string | null"
  }
}
`

const normalizationRules = `
RULES:
1. Read the entire JSON array and understand the full execution story of the workflow.
2. Classify the log as "error" or "informational":
   - "error"         : if any object contains errorCode, errorMessage, or errorState = 500
   - "informational" : if no error indicators are present
3. Extract the output fields from the relevant objects:
   - flow.*              : from the object where automationRoot = true or flowCode is present
   - user.id             : from the userId field in the root trigger object
   - tracking_variables  : from the object that contains the "variables" array
       - Strip the _Oo_VarName_Oo_ wrapper from values to extract the clean value
       - The variable with trackingPkVarName is the primary_key
       - All others are secondary
   - error.*             : from the object that contains errorCode AND errorMessage
4. For the error.message_parsed block:
   - The errorMessage field often contains raw XML (APIInvocationError format)
   - Extract http_status, root_cause, failed_url, and a clean error_description from it
   - Do not include raw XML in the output
5. Convert flowEventCreationDate (epoch milliseconds) to ISO 8601 timestamp format.
6. For trigger_type:
   - If the root trigger object has no endpointType and has scheduleId or schedulerJobState -> "scheduled"
   - If endpointType = "rest"  -> "rest"
   - If endpointType = "soap"  -> "soap"
7. For informational logs, return the entire "error" block as null.
8. Never add fields that are not in the output schema.
9. Never omit fields - always return every field in the schema, use null if no data exists.
10. Return only valid JSON - no explanation, no markdown, no code fences.
`

const normalizationSystemPrompt = "You are a log normalization engine for Oracle Integration Cloud (OIC) logs."

func normalizationUserPrompt(rawLog string) string {
	return fmt.Sprintf(`Your job is to read a raw OIC log and extract a normalized JSON object that strictly follows the output schema below.

OUTPUT SCHEMA:
%s

%s

RAW LOG:
%s

Return only the normalized JSON object. No explanation. No markdown. No code fences.`, normalizedLogSchema, normalizationRules, rawLog)
}
