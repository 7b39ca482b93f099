package gitcli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(strs ...string) []string { return strs }

func strPtr(s string) *string { return &s }

func TestParse_SimpleCommand(t *testing.T) {
	got := Parse(s("commit", "-m", "foo"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "commit", *got.Command)
	assert.Equal(t, s("-m", "foo"), got.CommandArgs)
	assert.Empty(t, got.GlobalArgs)
	assert.False(t, got.IsHelp)
}

func TestParse_GlobalsBeforeCommand(t *testing.T) {
	got := Parse(s("-C", "..", "commit", "-m", "foo"))
	assert.Equal(t, s("-C", ".."), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "commit", *got.Command)
	assert.Equal(t, s("-m", "foo"), got.CommandArgs)
}

func TestParse_StickyCAndMultipleCVariants(t *testing.T) {
	got := Parse(s("-C", ".", "-C/tmp", "-C", "-", "status"))
	assert.Equal(t, s("-C", ".", "-C/tmp", "-C", "-"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "status", *got.Command)
}

func TestParse_DashCStickyAndSeparate(t *testing.T) {
	got := Parse(s("-c", "user.name=alice", "-cuser.email=a@b.com", "status"))
	assert.Equal(t, s("-c", "user.name=alice", "-cuser.email=a@b.com"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "status", *got.Command)
}

func TestParse_DashCMissingValueAtEndKeptNoCrash(t *testing.T) {
	got := Parse(s("-c"))
	assert.Equal(t, s("-c"), got.GlobalArgs)
	assert.Nil(t, got.Command)
}

func TestParse_DashCValueButNoCommand(t *testing.T) {
	got := Parse(s("-c", "a=b"))
	assert.Equal(t, s("-c", "a=b"), got.GlobalArgs)
	assert.Nil(t, got.Command)
	assert.Empty(t, got.CommandArgs)
}

func TestParse_NoArgsAtAll(t *testing.T) {
	got := Parse(nil)
	assert.Nil(t, got.Command)
	assert.Empty(t, got.GlobalArgs)
	assert.Empty(t, got.CommandArgs)
}

func TestParse_GitDirNamespaceWorkTree(t *testing.T) {
	got := Parse(s("-c", "a=b", "--namespace=ns", "--git-dir", "/g", "--work-tree=/w", "status", "--porcelain"))
	assert.Equal(t, s("-c", "a=b", "--namespace=ns", "--git-dir", "/g", "--work-tree=/w"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "status", *got.Command)
	assert.Equal(t, s("--porcelain"), got.CommandArgs)
}

func TestParse_ListCmdsAsGlobalTakesValue(t *testing.T) {
	got := Parse(s("--list-cmds=main,others", "status"))
	assert.Equal(t, s("--list-cmds=main,others"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "status", *got.Command)
}

func TestParse_SuperPrefixAndAttrSourceGlobals(t *testing.T) {
	got := Parse(s("--super-prefix=foo/", "--attr-source", "path/to/file", "log"))
	assert.Equal(t, s("--super-prefix=foo/", "--attr-source", "path/to/file"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "log", *got.Command)
}

func TestParse_BareAndNoOptionalLocksAndNoAdviceAndNoLazyFetch(t *testing.T) {
	got := Parse(s("--bare", "--no-optional-locks", "--no-advice", "--no-lazy-fetch", "fsck"))
	assert.Equal(t, s("--bare", "--no-optional-locks", "--no-advice", "--no-lazy-fetch"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "fsck", *got.Command)
}

func TestParse_ExecPathWithoutValueNoCommand(t *testing.T) {
	got := Parse(s("--exec-path"))
	assert.Equal(t, s("--exec-path"), got.GlobalArgs)
	assert.Nil(t, got.Command)
}

func TestParse_ExecPathWithValueNoCommand(t *testing.T) {
	got := Parse(s("--exec-path", "/usr/libexec/git-core"))
	assert.Equal(t, s("--exec-path", "/usr/libexec/git-core"), got.GlobalArgs)
	assert.Nil(t, got.Command)
}

func TestParse_ExecPathEqualsFormNoCommand(t *testing.T) {
	got := Parse(s("--exec-path=/usr/libexec/git-core"))
	assert.Equal(t, s("--exec-path=/usr/libexec/git-core"), got.GlobalArgs)
	assert.Nil(t, got.Command)
}

func TestParse_ExecPathThenCommandIsGlobal(t *testing.T) {
	got := Parse(s("--exec-path=foo", "under_score"))
	assert.Equal(t, s("--exec-path=foo"), got.GlobalArgs)
	require.NotNil(t, got.Command)
	assert.Equal(t, "under_score", *got.Command)
}

func TestParse_BlameDoubleDashThenFilename(t *testing.T) {
	got := Parse(s("blame", "--", "Readme.md"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "blame", *got.Command)
	assert.Equal(t, s("--", "Readme.md"), got.CommandArgs)
	assert.False(t, got.SawEndOfOpts)
}

func TestParse_BlameFilenameStartsWithDash(t *testing.T) {
	got := Parse(s("blame", "--", "-weird-file"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "blame", *got.Command)
	assert.Equal(t, s("--", "-weird-file"), got.CommandArgs)
}

func TestParse_EndOfOptionsThenDashyNonMetaCommand(t *testing.T) {
	got := Parse(s("--", "-notarealcmd", "--arg"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "-notarealcmd", *got.Command)
	assert.Equal(t, s("--arg"), got.CommandArgs)
	assert.True(t, got.SawEndOfOpts)
}

func TestParse_WithEndOfOptsRoundtrips(t *testing.T) {
	args := s("-C", ".", "--", "--weird")
	got := Parse(args)
	assert.Equal(t, args, got.ToInvocation())
}

func TestParse_WithEndOfOptsNoCommandRoundtrips(t *testing.T) {
	args := s("-C", ".", "--")
	got := Parse(args)
	assert.Nil(t, got.Command)
	assert.True(t, got.SawEndOfOpts)
	assert.Equal(t, args, got.ToInvocation())
}

func TestParse_EndOfOptsPreventsHelpRewrite(t *testing.T) {
	got := Parse(s("--", "--help"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "--help", *got.Command)
	assert.True(t, got.IsHelp)
}

func TestParse_PrecommandHelpRewritesToHelpCommand(t *testing.T) {
	got := Parse(s("--help", "commit", "-a"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "help", *got.Command)
	assert.Equal(t, s("commit", "-a"), got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_TopLevelShortHIsAliasForHelp(t *testing.T) {
	got := Parse(s("-h", "status"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "help", *got.Command)
	assert.Equal(t, s("status"), got.CommandArgs)
}

func TestParse_CommitShortHIsNotRewritten(t *testing.T) {
	got := Parse(s("commit", "-h"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "commit", *got.Command)
	assert.Equal(t, s("-h"), got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_PostcommandHelpDoesNotRewriteEvenForKnownCmd(t *testing.T) {
	got := Parse(s("commit", "--help"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "commit", *got.Command)
	assert.Equal(t, s("--help"), got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_GuidesTopicPostcommandMustFailCase(t *testing.T) {
	got := Parse(s("revisions", "--help"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "revisions", *got.Command)
	assert.True(t, got.IsHelp)
}

func TestParse_CommandHelpIsARealCommand(t *testing.T) {
	got := Parse(s("help", "-a"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "help", *got.Command)
	assert.Equal(t, s("-a"), got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_VersionRewritesWhenNoCommand(t *testing.T) {
	got := Parse(s("--version"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "version", *got.Command)
	assert.Empty(t, got.CommandArgs)
	assert.False(t, got.IsHelp)
	assert.Empty(t, got.GlobalArgs)
}

func TestParse_VersionRewritesEvenIfACommandTokenFollows(t *testing.T) {
	got := Parse(s("--version", "commit"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "version", *got.Command)
	assert.Empty(t, got.CommandArgs)
}

func TestParse_VersionKeepsBuildOptionsAndDropsCommandToken(t *testing.T) {
	got := Parse(s("--version", "--build-options", "commit"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "version", *got.Command)
	assert.Equal(t, s("--build-options"), got.CommandArgs)
	assert.False(t, got.IsHelp)
}

func TestParse_MetaVersionNoCommandEvenWithExtraFlags(t *testing.T) {
	got := Parse(s("--version", "-v"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "version", *got.Command)
	assert.Equal(t, s("-v"), got.CommandArgs)
}

func TestParse_HelpPrecedesVersionWhenBothGiven(t *testing.T) {
	got := Parse(s("-v", "--help"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "help", *got.Command)
	assert.Empty(t, got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_HelpPrecedesVersionNoCommandCaseToo(t *testing.T) {
	got := Parse(s("-v", "-h"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "help", *got.Command)
	assert.Empty(t, got.CommandArgs)
}

func TestParse_HelpStillPrecedesVersionWhenBothPresentWithCommand(t *testing.T) {
	got := Parse(s("--version", "--help", "commit"))
	require.NotNil(t, got.Command)
	assert.Equal(t, "help", *got.Command)
	assert.Equal(t, s("commit"), got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_UnknownTopLevelOptionMeansNoCommand(t *testing.T) {
	got := Parse(s("--totally-unknown", "rest"))
	assert.Nil(t, got.Command)
	assert.Equal(t, s("--totally-unknown", "rest"), got.CommandArgs)
	assert.Empty(t, got.GlobalArgs)
}

func TestParse_UnknownTopLevelOptionDisablesCommandAndPassthrough(t *testing.T) {
	got := Parse(s("--unknown-top", "status", "-s"))
	assert.Nil(t, got.Command)
	assert.Equal(t, s("--unknown-top", "status", "-s"), got.CommandArgs)
	assert.Empty(t, got.GlobalArgs)
}

func TestParse_UnknownThenEverythingPassthroughEvenIfCommandLikeTokenExists(t *testing.T) {
	got := Parse(s("--mystery", "commit", "-m", "x"))
	assert.Nil(t, got.Command)
	assert.Equal(t, s("--mystery", "commit", "-m", "x"), got.CommandArgs)
}

func TestParse_UnknownTopLevelBlocksHelpRewrite(t *testing.T) {
	got := Parse(s("--bogus", "--help"))
	assert.Nil(t, got.Command)
	assert.Equal(t, s("--bogus", "--help"), got.CommandArgs)
	assert.True(t, got.IsHelp)
}

func TestParse_UnknownTopLevelBlocksVersionRewrite(t *testing.T) {
	got := Parse(s("--bogus", "--version"))
	assert.Nil(t, got.Command)
	assert.Equal(t, s("--bogus", "--version"), got.CommandArgs)
	assert.False(t, got.IsHelp)
}

func TestParse_ExecPathThenCommandIsGlobalRoundtrips(t *testing.T) {
	args := s("--exec-path=foo", "under_score")
	got := Parse(args)
	assert.Equal(t, args, got.ToInvocation())
}

func TestParse_InverseSimpleCommitRoundtrips(t *testing.T) {
	args := s("-C", "..", "commit", "-m", "foo")
	got := Parse(args)
	assert.Equal(t, args, got.ToInvocation())
}

func TestParse_InverseMetaNoCommandCanonicalizes(t *testing.T) {
	got := Parse(s("--version"))
	assert.Equal(t, s("version"), got.ToInvocation())
	reparsed := Parse(got.ToInvocation())
	assert.Equal(t, got.Command, reparsed.Command)
	assert.Equal(t, got.CommandArgs, reparsed.CommandArgs)
}

func TestParse_InverseUnknownOptionPassthroughRoundtrips(t *testing.T) {
	args := s("--mystery", "status", "-s")
	got := Parse(args)
	assert.Equal(t, args, got.ToInvocation())
}

func TestParse_InverseEndOfOptsNoteRoundtrips(t *testing.T) {
	args := s("blame", "--", "Readme.md")
	got := Parse(args)
	assert.Equal(t, args, got.ToInvocation())
}
