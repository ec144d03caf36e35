package lang

func init() {
	Register(&LanguageSpec{
		Language:       Python,
		FileExtensions: []string{".py", ".pyw"},
		ShebangMarkers: []string{"python"},

		ModuleNodeTypes:     []string{"module"},
		ImportNodeTypes:     []string{"import_statement"},
		ImportFromTypes:     []string{"import_from_statement"},
		ChainNodeTypes:      []string{"attribute", "call", "subscript"},
		BlockNodeTypes:      []string{"block"},
		DefinitionNodeTypes: []string{"function_definition", "class_definition"},
	})
}
