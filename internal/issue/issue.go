// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	GameNotFoundId Id = iota + 1
	GameVersionUnavailableId
	CatalogUnavailableId
	ManifestMalformedId
	PayloadMissingId
	ArchiveUnsupportedId
	FolderConflictId
	ModNotFoundId
	DependenciesMissingId
	ConfigLoadFailedId
	StateUnreadableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const (
	modderWiki    HttpLink = "https://stardewvalleywiki.com/Modding:Player_Guide/Getting_Started"
	troubleshoot  HttpLink = "https://stardewvalleywiki.com/Modding:Player_Guide/Troubleshooting"
	manifestDocs  HttpLink = "https://stardewvalleywiki.com/Modding:Modder_Guide/APIs/Manifest"
	catalogStatus HttpLink = "https://smapi.io/mods"
)

var (
	render = glamour.Render

	gameNotFoundIssue = &Issue{
		id: GameNotFoundId,
		mdMsg: `
# Game installation not found!

We looked for Stardew Valley in the usual Steam and GOG locations but could not find it.

## Things you can try:
- Point valleymod at your game folder:
~~~
$ valleymod config init --game-path "/path/to/Stardew Valley"
~~~
- Or set the environment variable:
~~~
$ export VALLEYMOD_GAME_PATH="/path/to/Stardew Valley"
~~~
- Make sure the folder contains ` + "`Stardew Valley.dll`" + ` (or the game executable)`,
		docLinks: []HttpLink{modderWiki},
	}

	gameVersionUnavailableIssue = &Issue{
		id: GameVersionUnavailableId,
		mdMsg: `
# Game version unknown!

The game version is read from the mod loader's log, which is written every time you launch the game.
Without it, dependencies that are not installed cannot be looked up in the mod catalog and are recorded as unresolved.

## Things you can try:
- Launch the game once through SMAPI, then retry
- Or set the version explicitly:
~~~
$ export VALLEYMOD_GAME_VERSION=1.6.15
~~~`,
		docLinks: []HttpLink{troubleshoot},
	}

	catalogUnavailableIssue = &Issue{
		id: CatalogUnavailableId,
		mdMsg: `
# Mod catalog unreachable!

The mod catalog could not be queried. Missing dependencies were recorded as unresolved; nothing else was lost.

## Things you can try:
- Check your internet connection
- Retry later; dependency rules are refreshed every time a mod is enabled:
~~~
$ valleymod enable <mod-id>
~~~`,
		docLinks: []HttpLink{catalogStatus},
	}

	manifestMalformedIssue = &Issue{
		id: ManifestMalformedId,
		mdMsg: `
# Malformed manifest!

A ` + "`manifest.json`" + ` could not be read. The mod was installed anyway, but without dependency information.

## Things you can try:
- Check the file for syntax errors (missing quotes or braces)
- Ask the mod author for a fixed release`,
		docLinks: []HttpLink{manifestDocs},
	}

	payloadMissingIssue = &Issue{
		id: PayloadMissingId,
		mdMsg: `
# SMAPI installer is incomplete!

The archive looks like the SMAPI installer, but the payload for your operating system is missing.

## Things you can try:
- Download SMAPI again from the official site; do not repack it
- Make sure you picked the installer archive, not the developer build`,
		docLinks: []HttpLink{modderWiki},
		extLinks: []HttpLink{"https://smapi.io"},
	}

	archiveUnsupportedIssue = &Issue{
		id: ArchiveUnsupportedId,
		mdMsg: `
# Archive not recognized!

The archive contains neither a ` + "`manifest.json`" + `, the SMAPI installer, nor game content overrides.

## Things you can try:
- Check that you downloaded the mod itself and not its source code
- Some mods must be installed by hand; read the mod page`,
		docLinks: []HttpLink{modderWiki},
	}

	folderConflictIssue = &Issue{
		id: FolderConflictId,
		mdMsg: `
# Mod folder already in use!

The archive contains a mod folder that belongs to another installed mod.

## Things you can try:
- Uninstall the other mod first
- Or reinstall over it if it is an older version of the same mod`,
		docLinks: []HttpLink{troubleshoot},
	}

	modNotFoundIssue = &Issue{
		id: ModNotFoundId,
		mdMsg: `
# Mod not found!

No installed mod has that id.

## Things you can try:
- List installed mods and their ids:
~~~
$ valleymod list
~~~`,
		docLinks: []HttpLink{modderWiki},
	}

	dependenciesMissingIssue = &Issue{
		id: DependenciesMissingId,
		mdMsg: `
# Dependencies missing!

Some required dependencies are not installed. The game will skip mods whose requirements are not met.

## Things you can try:
- Open the download pages of the missing dependencies:
~~~
$ valleymod deps <mod-id> --open
~~~
- Install them, then enable the mod again`,
		docLinks: []HttpLink{troubleshoot},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the expected schema.

## Things you can try:
- Print the effective configuration:
~~~
$ valleymod config show
~~~
- Recreate the file with defaults:
~~~
$ valleymod config init --force
~~~`,
		docLinks: []HttpLink{modderWiki},
	}

	stateUnreadableIssue = &Issue{
		id: StateUnreadableId,
		mdMsg: `
# Mod state unreadable!

The state file that records installed mods could not be read.

## Things you can try:
- Check the path configured as ` + "`state.path`" + `
- Restore the file from a backup; valleymod never edits it in place`,
		docLinks: []HttpLink{troubleshoot},
	}

	issues = map[Id]*Issue{
		gameNotFoundIssue.Id():           gameNotFoundIssue,
		gameVersionUnavailableIssue.Id(): gameVersionUnavailableIssue,
		catalogUnavailableIssue.Id():     catalogUnavailableIssue,
		manifestMalformedIssue.Id():      manifestMalformedIssue,
		payloadMissingIssue.Id():         payloadMissingIssue,
		archiveUnsupportedIssue.Id():     archiveUnsupportedIssue,
		folderConflictIssue.Id():         folderConflictIssue,
		modNotFoundIssue.Id():            modNotFoundIssue,
		dependenciesMissingIssue.Id():    dependenciesMissingIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		stateUnreadableIssue.Id():        stateUnreadableIssue,
	}
)

// Values returns every known issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
