// Package webfetch provides a tool that downloads a web page and converts
// its HTML to Markdown with html-to-markdown, for models that need to read
// pages during a workflow.
package webfetch
