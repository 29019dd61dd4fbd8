// internal/mcpserver/schema.go
package mcpserver

import "encoding/json"

func processQuerySchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "Customer query in natural language, e.g. \"¿Cuál es el saldo de V-12345678?\""
    }
  },
  "required": ["query"]
}`)
}

func rebuildSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {}
}`)
}

func compoundInterestSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "principal": {"type": "number", "description": "Initial amount; negative for a debt"},
    "rate": {"type": "number", "description": "Interest rate per period as a decimal (5% = 0.05), greater than -1"},
    "periods": {"type": "number", "description": "Number of periods, fractional allowed, >= 0"}
  },
  "required": ["principal", "rate", "periods"]
}`)
}

func annuityPaymentSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "principal": {"type": "number", "description": "Loan amount, >= 0"},
    "rate": {"type": "number", "description": "Interest rate per period as a decimal, >= 0"},
    "periods": {"type": "number", "description": "Number of payments, > 0"}
  },
  "required": ["principal", "rate", "periods"]
}`)
}
