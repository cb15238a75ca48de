package adapter

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Minimal XML-RPC codec covering the weblogUpdates method family: positional
// string/int call parameters and responses that are either a fault struct or
// a {flerror, message} struct.

type methodCall struct {
	XMLName    xml.Name    `xml:"methodCall"`
	MethodName string      `xml:"methodName"`
	Params     []callParam `xml:"params>param"`
}

type callParam struct {
	Value callValue `xml:"value"`
}

type callValue struct {
	String *string `xml:"string,omitempty"`
	Int    *int    `xml:"int,omitempty"`
}

func (m *methodCall) addString(s string) {
	m.Params = append(m.Params, callParam{Value: callValue{String: &s}})
}

func (m *methodCall) addInt(i int) {
	m.Params = append(m.Params, callParam{Value: callValue{Int: &i}})
}

func (m *methodCall) encode() ([]byte, error) {
	body, err := xml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal method call: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

type methodResponseXML struct {
	XMLName xml.Name    `xml:"methodResponse"`
	Fault   *respValue  `xml:"fault>value"`
	Params  []respValue `xml:"params>param>value"`
}

type respValue struct {
	String  string       `xml:"string"`
	Int     string       `xml:"int"`
	I4      string       `xml:"i4"`
	Boolean string       `xml:"boolean"`
	Members []respMember `xml:"struct>member"`
	Raw     string       `xml:",chardata"`
}

type respMember struct {
	Name  string    `xml:"name"`
	Value respValue `xml:"value"`
}

// faultInfo is a decoded XML-RPC fault struct.
type faultInfo struct {
	Code    int
	Message string
}

// methodReply is the decoded, interpreted response.
type methodReply struct {
	Fault   *faultInfo
	FLError bool
	Message string
}

func decodeMethodResponse(raw []byte) (methodReply, error) {
	var resp methodResponseXML
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return methodReply{}, fmt.Errorf("unmarshal method response: %w", err)
	}

	if resp.Fault != nil {
		fault := &faultInfo{}
		for _, m := range resp.Fault.Members {
			switch m.Name {
			case "faultCode":
				fault.Code = m.Value.intValue()
			case "faultString":
				fault.Message = m.Value.stringValue()
			}
		}
		return methodReply{Fault: fault}, nil
	}

	var reply methodReply
	for _, v := range resp.Params {
		for _, m := range v.Members {
			switch m.Name {
			case "flerror":
				reply.FLError = m.Value.boolValue()
			case "message":
				reply.Message = m.Value.stringValue()
			}
		}
	}
	return reply, nil
}

func (v respValue) stringValue() string {
	if v.String != "" {
		return v.String
	}
	// Bare text inside <value> with no type element is a string per spec.
	return strings.TrimSpace(v.Raw)
}

func (v respValue) intValue() int {
	for _, s := range []string{v.Int, v.I4} {
		if s == "" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

func (v respValue) boolValue() bool {
	switch v.Boolean {
	case "1", "true":
		return true
	}
	// Some aggregators reply with <int> instead of <boolean>.
	return v.intValue() != 0
}
