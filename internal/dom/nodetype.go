package dom

import "fmt"

// NodeType is a DOM node type code.
type NodeType int

// Node type codes as defined by the DOM standard.
const (
	ElementNode               NodeType = 1
	AttributeNode             NodeType = 2
	TextNode                  NodeType = 3
	CDATASectionNode          NodeType = 4
	EntityReferenceNode       NodeType = 5
	EntityNode                NodeType = 6
	ProcessingInstructionNode NodeType = 7
	CommentNode               NodeType = 8
	DocumentNode              NodeType = 9
	DocumentTypeNode          NodeType = 10
	DocumentFragmentNode      NodeType = 11
	NotationNode              NodeType = 12
)

var nodeTypeNames = map[NodeType]string{
	ElementNode:               "ELEMENT_NODE",
	AttributeNode:             "ATTRIBUTE_NODE",
	TextNode:                  "TEXT_NODE",
	CDATASectionNode:          "CDATA_SECTION_NODE",
	EntityReferenceNode:       "ENTITY_REFERENCE_NODE",
	EntityNode:                "ENTITY_NODE",
	ProcessingInstructionNode: "PROCESSING_INSTRUCTION_NODE",
	CommentNode:               "COMMENT_NODE",
	DocumentNode:              "DOCUMENT_NODE",
	DocumentTypeNode:          "DOCUMENT_TYPE_NODE",
	DocumentFragmentNode:      "DOCUMENT_FRAGMENT_NODE",
	NotationNode:              "NOTATION_NODE",
}

// String returns the DOM constant name, or UNKNOWN_NODE(n) for codes outside the table.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_NODE(%d)", int(t))
}

// Valid reports whether t is in the node type table.
func (t NodeType) Valid() bool {
	_, ok := nodeTypeNames[t]
	return ok
}
