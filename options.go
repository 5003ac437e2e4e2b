package texast

import "strings"

// KeyValue parses the content of an optional argument written as a
// key=value list, for example \includegraphics[scale=1.5,angle=90]{...}.
// Keys are lower-cased; a key without a value maps to an empty string.
func KeyValue(raw string) map[string]string {
	kv := map[string]string{}

	for _, part := range strings.Split(raw, ",") {
		n := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if n[0] == "" {
			continue
		}

		if len(n) == 1 {
			kv[strings.ToLower(n[0])] = ""
			continue
		}

		kv[strings.ToLower(n[0])] = n[1]
	}

	return kv
}

// Options extracts the key=value pairs of a command's or environment's
// first optional argument, or nil when it has none.
func Options(node *Node) map[string]string {
	if node == nil || len(node.Optional) == 0 {
		return nil
	}

	return KeyValue(String(node.Optional[0]))
}
