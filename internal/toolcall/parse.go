package toolcall

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseJSON decodes a tool call from JSON. It accepts the bare input object
// ({"command": ..., "path": ...}), a tool_use block carrying it under
// "input", or a function call carrying it as a JSON string under "arguments".
func ParseJSON(data string) (Call, error) {
	if !gjson.Valid(data) {
		return Call{}, fmt.Errorf("%w: malformed JSON", ErrInvalidCall)
	}

	root := gjson.Parse(data)
	if input := root.Get("input"); input.IsObject() {
		root = input
	} else if args := root.Get("arguments"); args.Type == gjson.String {
		if !gjson.Valid(args.Str) {
			return Call{}, fmt.Errorf("%w: malformed arguments", ErrInvalidCall)
		}
		root = gjson.Parse(args.Str)
	} else if args.IsObject() {
		root = args
	}
	if !root.IsObject() {
		return Call{}, fmt.Errorf("%w: expected an object", ErrInvalidCall)
	}

	call := Call{
		Command:  Command(root.Get("command").String()),
		Path:     root.Get("path").String(),
		OldStr:   root.Get("old_str").String(),
		NewStr:   root.Get("new_str").String(),
		FileText: root.Get("file_text").String(),
	}
	if call.Command == CommandInsert {
		line := root.Get("insert_line")
		if !line.Exists() {
			return Call{}, fmt.Errorf("%w: insert requires insert_line", ErrInvalidCall)
		}
		call.InsertLine = int(line.Int())
		if !root.Get("new_str").Exists() {
			call.NewStr = root.Get("text").String()
		}
	}
	return call, call.Validate()
}

type xmlCall struct {
	Path     string `xml:"path,attr"`
	Line     *int   `xml:"line,attr"`
	OldStr   string `xml:"old_str"`
	NewStr   string `xml:"new_str"`
	FileText string `xml:"file_text"`
}

// ParseXML decodes the first tool call element in data, e.g.
//
//	<str_replace path="main.go">
//	<old_str>
//	fmt.Println("a")
//	</old_str>
//	<new_str>
//	fmt.Println("b")
//	</new_str>
//	</str_replace>
//
// The element name is the command. A newline directly after an opening body
// tag is dropped so bodies can start on their own line.
func ParseXML(data string) (Call, error) {
	dec := xml.NewDecoder(strings.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return Call{}, fmt.Errorf("%w: no tool call element", ErrInvalidCall)
		}
		if err != nil {
			return Call{}, fmt.Errorf("%w: %v", ErrInvalidCall, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		var x xmlCall
		if err := dec.DecodeElement(&x, &start); err != nil {
			return Call{}, fmt.Errorf("%w: %v", ErrInvalidCall, err)
		}
		call := Call{
			Command:  Command(start.Name.Local),
			Path:     x.Path,
			OldStr:   trimBody(x.OldStr),
			NewStr:   trimBody(x.NewStr),
			FileText: trimBody(x.FileText),
		}
		if call.Command == CommandInsert {
			if x.Line == nil {
				return Call{}, fmt.Errorf("%w: insert requires a line attribute", ErrInvalidCall)
			}
			call.InsertLine = *x.Line
		}
		return call, call.Validate()
	}
}

func trimBody(s string) string {
	return strings.TrimPrefix(s, "\n")
}
