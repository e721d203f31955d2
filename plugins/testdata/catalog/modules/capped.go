package main

func ModuleDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"name":            "capped",
			"version":         "1.0.0",
			"description":     "Hard cap on total supply",
			"category":        "operation-set",
			"compatible_with": []string{"erc20"},
			"requires_types":  []string{"uint256"},
			"provides": map[string]any{
				"state_variables": []string{"_cap"},
				"functions":       []string{"cap"},
				"errors":          []string{"CapExceeded"},
			},
			"injections": []map[string]any{
				{
					"slot":    "STATE_VARIABLES",
					"order":   0,
					"content": "[[AMOUNT_TYPE]] private immutable _cap = 1_000_000 ether;\nerror CapExceeded();",
				},
				{
					"slot":    "FUNCTIONS",
					"order":   5,
					"content": "function cap() public view returns ([[AMOUNT_TYPE]]) {\n    return _cap;\n}",
				},
				{
					"slot":    "BEFORE_UPDATE",
					"order":   0,
					"content": "if (from == address(0) && totalSupply() + value > _cap) revert CapExceeded();",
				},
			},
		},
	}, nil
}
