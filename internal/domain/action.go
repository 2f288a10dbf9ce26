package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ActionDescription is the rendered form of an action log entry.
type ActionDescription struct {
	Icon string
	Text string
}

// DescribeAction renders an action frame for the action log. Execution
// updates carry a JSON-encoded {action, params} document in their data
// field; everything else is shown as compact JSON.
func DescribeAction(f ActionFrame) ActionDescription {
	if f.Type == FrameTypeExecutionUpdate {
		data := gjson.GetBytes(f.Raw, "data")
		if data.Type == gjson.String {
			return describeEncoded(data.Str)
		}
		if data.Exists() {
			return ActionDescription{Text: compact([]byte(data.Raw))}
		}
	}
	return ActionDescription{Text: compact(f.Raw)}
}

func describeEncoded(s string) ActionDescription {
	if !gjson.Valid(s) {
		return ActionDescription{Text: s}
	}
	doc := gjson.Parse(s)
	if !doc.IsObject() {
		return ActionDescription{Text: s}
	}

	action := doc.Get("action").String()
	params := doc.Get("params")
	param := func(name string) string { return params.Get(name).String() }

	switch action {
	case "run_command":
		return ActionDescription{"🖥️", "Ran command: " + param("command")}
	case "view_file_contents":
		return ActionDescription{"📄", "Viewed file: " + param("file_path")}
	case "edit_file_contents":
		return ActionDescription{"✏️", "Edited file: " + param("file_path")}
	case "create_new_file":
		return ActionDescription{"📝", "Created new file: " + param("file_path")}
	case "run_python_file":
		return ActionDescription{"🐍", "Ran Python file: " + param("file_path")}
	case "perplexity_search":
		return ActionDescription{"🔍", "Searched: " + param("query")}
	case "send_message_to_student":
		return ActionDescription{"➡️", "Sent message to student"}
	case "send_niacl_message":
		return ActionDescription{"📨", "Sent NIACL message to: " + param("receiver")}
	case "visualize_image":
		return ActionDescription{"🖼️", "Visualized image: " + param("file_path")}
	case "delegate_and_execute_task":
		return ActionDescription{"📋", "Delegated task: " + param("task_name")}
	case "declare_complete":
		return ActionDescription{"✅", "Declared task complete"}
	default:
		p := "null"
		if params.Exists() {
			p = compact([]byte(params.Raw))
		}
		return ActionDescription{"❓", fmt.Sprintf("%s: %s", action, p)}
	}
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
