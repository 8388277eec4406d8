package ast

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Decode reads an untyped program from a YAML document. The document is a
// sequence of statements:
//
//	- {assign: x, value: 5}
//	- {assign: {index: [a, 0]}, value: x}
//	- {if: {lt: [x, 3]}, then: [...], else: [...]}
//	- {while: c, do: [...]}
//	- {expr: {call: print, args: [x]}}
//
// Expressions are scalars (integer, boolean, identifier) or single-operator
// mappings such as {add: [x, 1]}, {not: b}, {array: [1, 2]},
// {array: {len: n, fill: 0}} and {index: [a, i]}.
func Decode(data []byte) (*Module, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ast: parse program: %w", err)
	}
	if doc.Kind == 0 {
		return &Module{}, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return &Module{}, nil
		}
		root = root.Content[0]
	}
	stmts, err := decodeStmts(root)
	if err != nil {
		return nil, fmt.Errorf("ast: %w", err)
	}
	return &Module{Stmts: stmts}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler so a Module can be embedded in
// larger YAML documents.
func (m *Module) UnmarshalYAML(value *yaml.Node) error {
	stmts, err := decodeStmts(value)
	if err != nil {
		return err
	}
	m.Stmts = stmts
	return nil
}

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func decodeStmts(n *yaml.Node) ([]Stmt, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErr(n, "expected a list of statements")
	}
	stmts := make([]Stmt, 0, len(n.Content))
	for _, item := range n.Content {
		stmt, err := decodeStmt(item)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// mappingFields indexes the keys of a mapping node.
func mappingFields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeErr(n, "expected a mapping")
	}
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if _, dup := fields[key.Value]; dup {
			return nil, nodeErr(key, "duplicate key %q", key.Value)
		}
		fields[key.Value] = n.Content[i+1]
	}
	return fields, nil
}

func decodeStmt(n *yaml.Node) (Stmt, error) {
	fields, err := mappingFields(n)
	if err != nil {
		return nil, err
	}
	switch {
	case fields["expr"] != nil:
		x, err := decodeExpr(fields["expr"])
		if err != nil {
			return nil, err
		}
		return &ExprStmt{X: x}, nil
	case fields["assign"] != nil:
		valueNode := fields["value"]
		if valueNode == nil {
			return nil, nodeErr(n, "assign requires a value")
		}
		value, err := decodeExpr(valueNode)
		if err != nil {
			return nil, err
		}
		target := fields["assign"]
		if target.Kind == yaml.ScalarNode {
			return &Assign{Name: Ident(target.Value), Value: value}, nil
		}
		dst, err := decodeExpr(target)
		if err != nil {
			return nil, err
		}
		idx, ok := dst.(*Index)
		if !ok {
			return nil, nodeErr(target, "assignment target must be a variable or an index expression")
		}
		return &IndexAssign{Array: idx.Array, Index: idx.Index, Value: value}, nil
	case fields["if"] != nil:
		cond, err := decodeExpr(fields["if"])
		if err != nil {
			return nil, err
		}
		stmt := &If{Cond: cond}
		if then := fields["then"]; then != nil {
			if stmt.Then, err = decodeStmts(then); err != nil {
				return nil, err
			}
		}
		if otherwise := fields["else"]; otherwise != nil {
			if stmt.Else, err = decodeStmts(otherwise); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	case fields["while"] != nil:
		cond, err := decodeExpr(fields["while"])
		if err != nil {
			return nil, err
		}
		stmt := &While{Cond: cond}
		if body := fields["do"]; body != nil {
			if stmt.Body, err = decodeStmts(body); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	default:
		return nil, nodeErr(n, "unknown statement")
	}
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.MappingNode:
	default:
		return nil, nodeErr(n, "expected an expression")
	}

	fields, err := mappingFields(n)
	if err != nil {
		return nil, err
	}
	if call := fields["call"]; call != nil {
		expr := &Call{Name: Ident(call.Value)}
		if args := fields["args"]; args != nil {
			if expr.Args, err = decodeExprList(args); err != nil {
				return nil, err
			}
		}
		return expr, nil
	}
	if len(fields) != 1 {
		return nil, nodeErr(n, "expression mapping must have exactly one operator key")
	}

	key, value := n.Content[0], n.Content[1]
	switch key.Value {
	case "neg", "not":
		operand, err := decodeExpr(value)
		if err != nil {
			return nil, err
		}
		op := OpNeg
		if key.Value == "not" {
			op = OpNot
		}
		return &Unary{Op: op, Operand: operand}, nil
	case "array":
		if value.Kind == yaml.SequenceNode {
			elems, err := decodeExprList(value)
			if err != nil {
				return nil, err
			}
			return &StaticArray{Elems: elems}, nil
		}
		dyn, err := mappingFields(value)
		if err != nil {
			return nil, err
		}
		if dyn["len"] == nil || dyn["fill"] == nil {
			return nil, nodeErr(value, "dynamic array requires len and fill")
		}
		length, err := decodeExpr(dyn["len"])
		if err != nil {
			return nil, err
		}
		fill, err := decodeExpr(dyn["fill"])
		if err != nil {
			return nil, err
		}
		return &DynamicArray{Len: length, Fill: fill}, nil
	case "index":
		pair, err := decodePair(value)
		if err != nil {
			return nil, err
		}
		return &Index{Array: pair[0], Index: pair[1]}, nil
	}

	op, ok := LookupBinaryOp(key.Value)
	if !ok {
		return nil, nodeErr(key, "unknown operator %q", key.Value)
	}
	pair, err := decodePair(value)
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, Left: pair[0], Right: pair[1]}, nil
}

func decodeScalar(n *yaml.Node) (Expr, error) {
	switch n.ShortTag() {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, nodeErr(n, "invalid integer %q", n.Value)
		}
		return &IntLiteral{Value: v}, nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, nodeErr(n, "invalid boolean %q", n.Value)
		}
		return &BoolLiteral{Value: v}, nil
	case "!!str":
		if n.Value == "" {
			return nil, nodeErr(n, "empty identifier")
		}
		return &VarRef{Name: Ident(n.Value)}, nil
	default:
		return nil, nodeErr(n, "unsupported scalar %q", n.Value)
	}
}

func decodeExprList(n *yaml.Node) ([]Expr, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErr(n, "expected a list of expressions")
	}
	exprs := make([]Expr, 0, len(n.Content))
	for _, item := range n.Content {
		e, err := decodeExpr(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func decodePair(n *yaml.Node) ([2]Expr, error) {
	exprs, err := decodeExprList(n)
	if err != nil {
		return [2]Expr{}, err
	}
	if len(exprs) != 2 {
		return [2]Expr{}, nodeErr(n, "expected exactly two operands, got %d", len(exprs))
	}
	return [2]Expr{exprs[0], exprs[1]}, nil
}
