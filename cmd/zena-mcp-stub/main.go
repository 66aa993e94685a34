// zena-mcp-stub is a development MCP server that answers the salon tool
// catalog with canned data, so the gateway can run dialogs without the real
// booking backends. It accepts both the current method names (tools/list,
// tools/call) and the legacy ones (list_tools, call_tool), with or without
// the input envelope, so it can stand in for any persona port.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Input     json.RawMessage `json:"input"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

var objectSchema = json.RawMessage(`{"type":"object"}`)

var catalog = []tool{
	{Name: "zena_faq", Description: "Ответы на частые вопросы о салоне", InputSchema: objectSchema},
	{Name: "zena_services", Description: "Перечень услуг салона", InputSchema: objectSchema},
	{Name: "zena_product_search", Description: "Поиск услуг салона по запросу клиента", InputSchema: objectSchema},
	{Name: "zena_record_product_id", Description: "Выбор услуги для записи", InputSchema: objectSchema},
	{Name: "zena_available_time_for_master", Description: "Свободные окна мастера", InputSchema: objectSchema},
	{Name: "zena_record_time", Description: "Запись клиента на время", InputSchema: objectSchema},
}

var canned = map[string]string{
	"zena_faq":                       `{"answer":"Салон работает ежедневно с 10:00 до 21:00"}`,
	"zena_services":                  `[{"name":"Маникюр"},{"name":"Педикюр"},{"name":"Стрижка"}]`,
	"zena_product_search":            `[{"id":101,"name":"Маникюр классический","price":1500},{"id":102,"name":"Маникюр с покрытием","price":2200}]`,
	"zena_record_product_id":         `{"status":"ok","productId":101}`,
	"zena_available_time_for_master": `["2026-09-01T12:00","2026-09-01T15:30","2026-09-02T10:00"]`,
	"zena_record_time":               `{"status":"ok","recordId":555}`,
}

func main() {
	port := flag.Int("port", 5002, "listen port")
	flag.Parse()

	http.HandleFunc("/mcp", handleRPC)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("zena-mcp-stub listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	switch req.Method {
	case "tools/list", "list_tools":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": catalog}})
	case "tools/call", "call_tool":
		handleCall(w, req)
	default:
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}})
	}
}

func handleCall(w http.ResponseWriter, req rpcRequest) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}})
		return
	}

	// Some personas wrap the whole call in an input envelope.
	if params.Name == "" && params.Input != nil {
		if err := json.Unmarshal(params.Input, &params); err != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid input envelope"}})
			return
		}
	}

	text, ok := canned[params.Name]
	result := toolResult{Content: []contentItem{{Type: "text", Text: text}}}
	if !ok {
		result = toolResult{
			Content: []contentItem{{Type: "text", Text: "unknown tool: " + params.Name}},
			IsError: true,
		}
	}
	log.Printf("call %s -> isError=%v", params.Name, result.IsError)
	writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
