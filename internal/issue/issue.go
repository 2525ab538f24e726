// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	DuplicateCommandId Id = iota + 1
	UnknownRootTypeId
	InvalidRootId
	ResolutionFailedId
	ActivationFailedId
	ConfigLoadFailedId
	HistoryUnavailableId
	ServeFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using the given glamour
// style ("dark", "light", "notty", or a path to a style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	duplicateCommandIssue = &Issue{
		id: DuplicateCommandId,
		mdMsg: `
# Two commands share a name!

Every command name must be unique across the core commands and all plugins.
Bootstrap stops at the first collision.

## Things you can try:
- Rename the command in one of the plugins
- Remove the unit file of the plugin you don't need from the scan root
- Start without the core commands if a plugin provides its own ` + "`clear`" + ` or ` + "`exit`" + `:
~~~
$ cliboot --no-core
~~~`,
	}

	unknownRootTypeIssue = &Issue{
		id: UnknownRootTypeId,
		mdMsg: `
# The scan root is neither a directory nor an archive!

Plugins are discovered from a directory tree or from a zip archive. The
configured root does not exist or is some other kind of file.

## Things you can try:
- Check the path passed with ` + "`--root`" + ` or set as ` + "`scan.root`" + `
- Show the effective configuration:
~~~
$ cliboot config show
~~~`,
	}

	invalidRootIssue = &Issue{
		id: InvalidRootId,
		mdMsg: `
# The scan root could not be read!

The root was found but could not be opened as the expected kind of source.
Archives must be valid zip files.

## Things you can try:
- Verify the archive with ` + "`unzip -l`" + `
- Check the permissions of the root directory`,
	}

	resolutionFailedIssue = &Issue{
		id: ResolutionFailedId,
		mdMsg: `
# A plugin unit could not be resolved!

A unit file was found under the scan root, but no plugin type could be
produced from it.

## Things you can try:
- For ` + "`.unit`" + ` markers, make sure the plugin is compiled into this binary
  and declared under the same identifier as the file path
- For ` + "`.lua`" + ` scripts, check the script for syntax or runtime errors
- Run with ` + "`--verbose`" + ` to see every unit as it is scanned`,
	}

	activationFailedIssue = &Issue{
		id: ActivationFailedId,
		mdMsg: `
# A command group could not be activated!

The plugin type was resolved, but constructing its instance failed.

## Things you can try:
- Check the group's constructor (or the ` + "`new`" + ` function of a Lua script)
- Run with ` + "`--verbose`" + ` for the full error chain`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be parsed or does not match the
schema.

## Things you can try:
- Show where the configuration is read from:
~~~
$ cliboot config path
~~~
- Write a fresh default file and compare:
~~~
$ cliboot config init
~~~`,
	}

	historyUnavailableIssue = &Issue{
		id: HistoryUnavailableId,
		mdMsg: `
# Command history is unavailable!

The history database could not be opened. Another cliboot process may be
holding its lock.

## Things you can try:
- Close other sessions and retry
- Disable history with ` + "`history.enabled: false`" + ` in the configuration`,
	}

	serveFailedIssue = &Issue{
		id: ServeFailedId,
		mdMsg: `
# The SSH server could not start!

## Things you can try:
- Pick another port with ` + "`--port`" + `
- Check that the host key path is writable
- Listening on anything but a loopback address requires ` + "`--authorized-keys`" + ``,
	}

	issues = map[Id]*Issue{
		duplicateCommandIssue.Id():   duplicateCommandIssue,
		unknownRootTypeIssue.Id():    unknownRootTypeIssue,
		invalidRootIssue.Id():        invalidRootIssue,
		resolutionFailedIssue.Id():   resolutionFailedIssue,
		activationFailedIssue.Id():   activationFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		historyUnavailableIssue.Id(): historyUnavailableIssue,
		serveFailedIssue.Id():        serveFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
