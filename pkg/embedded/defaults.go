package embedded

func server(command string, args ...string) *ServerCommand {
	return &ServerCommand{Command: command, Args: args}
}

// Defaults returns a fresh copy of the built-in languages.
func Defaults() []*Language {
	return []*Language{
		{
			IDs:          []string{"python"},
			Extension:    "py",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{"."},
			Preamble:     []string{"# type: ignore", "# flake8: noqa"},
			Server:       server("pyright-langserver", "--stdio"),
		},
		{
			IDs:          []string{"r"},
			Extension:    "r",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{"$", "@", ":"},
			ReuseHandle:  true,
			Server:       server("R", "--slave", "-e", "languageserver::run()"),
		},
		{
			IDs:          []string{"julia"},
			Extension:    "jl",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{"."},
			Server:       server("julia", "--startup-file=no", "--history-file=no", "-e", "using LanguageServer; runserver()"),
		},
		{
			IDs:       []string{"sql"},
			Extension: "sql",
			Strategy:  StrategyTempFile,
			Server:    server("sql-language-server", "up", "--method", "stdio"),
		},
		{
			IDs:       []string{"bash", "sh", "shell"},
			Extension: "sh",
			Strategy:  StrategyTempFile,
			Server:    server("bash-language-server", "start"),
		},
		{
			IDs:          []string{"tex", "latex"},
			Extension:    "tex",
			Strategy:     StrategyContent,
			TriggerChars: []string{"\\"},
			Server:       server("texlab"),
		},
		{
			IDs:          []string{"html"},
			Extension:    "html",
			Strategy:     StrategyContent,
			TriggerChars: []string{"<", "/"},
			Server:       server("vscode-html-language-server", "--stdio"),
		},
		{
			IDs:          []string{"css"},
			Extension:    "css",
			Strategy:     StrategyContent,
			TriggerChars: []string{":"},
			Server:       server("vscode-css-language-server", "--stdio"),
		},
		{
			IDs:          []string{"javascript", "js", "ojs"},
			Extension:    "js",
			Strategy:     StrategyContent,
			TriggerChars: []string{"."},
			Server:       server("typescript-language-server", "--stdio"),
		},
		{
			IDs:          []string{"typescript", "ts"},
			Extension:    "ts",
			Strategy:     StrategyContent,
			TriggerChars: []string{"."},
			Server:       server("typescript-language-server", "--stdio"),
		},
		{
			IDs:       []string{"dot", "graphviz"},
			Extension: "dot",
			Strategy:  StrategyContent,
		},
		{
			IDs:       []string{"mermaid"},
			Extension: "mmd",
			Strategy:  StrategyContent,
		},
		{
			IDs:          []string{"lua"},
			Extension:    "lua",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{".", ":"},
			Server:       server("lua-language-server"),
		},
		{
			IDs:          []string{"go"},
			Extension:    "go",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{"."},
			Preamble:     []string{"package main"},
			Server:       server("gopls"),
		},
		{
			IDs:          []string{"rust"},
			Extension:    "rs",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{".", ":"},
			Server:       server("rust-analyzer"),
		},
		{
			IDs:       []string{"ruby"},
			Extension: "rb",
			Strategy:  StrategyTempFile,
			Server:    server("solargraph", "stdio"),
		},
		{
			IDs:       []string{"java"},
			Extension: "java",
			Strategy:  StrategyTempFile,
			Server:    server("jdtls"),
		},
		{
			IDs:          []string{"cpp", "c++"},
			Extension:    "cpp",
			Strategy:     StrategyTempFile,
			TriggerChars: []string{".", ">", ":"},
			Server:       server("clangd"),
		},
	}
}

// DefaultRegistry returns a registry of the built-in languages.
func DefaultRegistry() *Registry {
	return &Registry{languages: Defaults()}
}
