package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"docvault/internal/app"
	"docvault/internal/blob"
	"docvault/internal/config"
	"docvault/internal/core"
	"docvault/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and wires up the engine. The caller must
// defer a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	a, err := app.New(cmd.Context(), cfg, debug)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// principal builds the acting principal from the --as and --roles flags.
func principal(cmd *cobra.Command) model.Principal {
	id, _ := cmd.Flags().GetString("as")
	roles, _ := cmd.Flags().GetStringSlice("roles")
	return model.Principal{ID: id, Roles: roles}
}

var rootCmd = &cobra.Command{
	Use:   "docvault",
	Short: "Document versioning and consistency engine",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Object Store: %s\n", cfg.ObjectStore.Type)
		fmt.Printf("Encryption:   %v\n", cfg.Encryption.Enabled)
		return nil
	},
}

// keys command
var keysInitCmd = &cobra.Command{
	Use:   "keys-init",
	Short: "Generate content encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err := blob.GenerateKeys(cfg.Encryption.RecipientPath, cfg.Encryption.IdentityPath); err != nil {
			return err
		}
		fmt.Printf("Recipient key: %s\n", cfg.Encryption.RecipientPath)
		fmt.Printf("Identity key:  %s\n", cfg.Encryption.IdentityPath)
		return nil
	},
}

// mkdir command
var mkdirCmd = &cobra.Command{
	Use:   "mkdir NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var parentID *string
		if parent, _ := cmd.Flags().GetString("parent"); parent != "" {
			parentID = &parent
		}

		folder, err := a.Service.CreateFolder(cmd.Context(), principal(cmd), parentID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created folder %s (%s)\n", folder.Name, folder.ID)
		return nil
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload FOLDER_ID FILE",
	Short: "Upload a new document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(args[1])
		}
		contentType, _ := cmd.Flags().GetString("type")

		doc, err := a.Service.Create(cmd.Context(), principal(cmd), args[0], name, contentType, f)
		if err != nil {
			return err
		}
		fmt.Printf("Created document %s (%s) at version %d\n", doc.Name, doc.ID, doc.CurrentSeq)
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update DOC_ID FILE",
	Short: "Upload a new version of a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		contentType, _ := cmd.Flags().GetString("type")
		v, err := a.Service.UpdateContent(cmd.Context(), principal(cmd), args[0], contentType, f)
		if err != nil {
			return err
		}
		fmt.Printf("Committed version %d (%d bytes)\n", v.Seq, v.Size)
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download DOC_ID",
	Short: "Download a document's current content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		seq, _ := cmd.Flags().GetInt64("version")
		if seq > 0 {
			_, err = a.Service.DownloadVersion(cmd.Context(), principal(cmd), args[0], seq, out)
		} else {
			_, err = a.Service.Download(cmd.Context(), principal(cmd), args[0], out)
		}
		return err
	},
}

// versions command
var versionsCmd = &cobra.Command{
	Use:   "versions DOC_ID",
	Short: "List a document's version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.Service.ListVersions(cmd.Context(), principal(cmd), args[0])
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Printf("v%d  %s  %d bytes  %s  by %s\n",
				v.Seq, v.ContentHash[:12], v.Size,
				v.CreatedAt.Format("2006-01-02 15:04:05"), v.CreatedBy)
		}
		return nil
	},
}

// restore-version command
var restoreVersionCmd = &cobra.Command{
	Use:   "restore-version DOC_ID SEQ",
	Short: "Make a historical version current again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence number: %q", args[1])
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.Service.RestoreVersion(cmd.Context(), principal(cmd), args[0], seq)
		if err != nil {
			return err
		}
		fmt.Printf("Restored content of v%d as new version v%d\n", seq, v.Seq)
		return nil
	},
}

// trash / restore / purge commands
var trashCmd = &cobra.Command{
	Use:   "trash DOC_ID",
	Short: "Move a document to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Service.Trash(cmd.Context(), principal(cmd), args[0])
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore DOC_ID",
	Short: "Restore a document from the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Service.RestoreDocument(cmd.Context(), principal(cmd), args[0])
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge DOC_ID",
	Short: "Permanently delete a trashed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Service.Purge(cmd.Context(), principal(cmd), args[0])
	},
}

// mv command
var mvCmd = &cobra.Command{
	Use:   "mv DOC_ID FOLDER_ID",
	Short: "Move a document to another folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		name, _ := cmd.Flags().GetString("name")
		return a.Service.MoveDocument(cmd.Context(), principal(cmd), args[0], args[1], name)
	},
}

// share / unshare commands
var shareCmd = &cobra.Command{
	Use:   "share RESOURCE_ID SUBJECT_ID",
	Short: "Grant capabilities on a document or folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resourceKind, subjectKind, err := shareKinds(cmd)
		if err != nil {
			return err
		}

		capList, _ := cmd.Flags().GetString("caps")
		caps, ok := model.ParseCapabilitySet(capList)
		if !ok {
			return fmt.Errorf("invalid capability list: %q", capList)
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.Service.Share(cmd.Context(), principal(cmd), args[0], resourceKind, args[1], subjectKind, caps)
		if err != nil {
			return err
		}
		fmt.Printf("Granted %s to %s %s on %s\n", g.Capabilities, g.SubjectKind, g.SubjectID, g.ResourceID)
		return nil
	},
}

var unshareCmd = &cobra.Command{
	Use:   "unshare RESOURCE_ID SUBJECT_ID",
	Short: "Revoke a grant on a document or folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resourceKind, subjectKind, err := shareKinds(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service.Unshare(cmd.Context(), principal(cmd), args[0], resourceKind, args[1], subjectKind)
	},
}

func shareKinds(cmd *cobra.Command) (model.ResourceKind, model.SubjectKind, error) {
	resource, _ := cmd.Flags().GetString("resource")
	subject, _ := cmd.Flags().GetString("subject")

	var resourceKind model.ResourceKind
	switch resource {
	case "document":
		resourceKind = model.ResourceDocument
	case "folder":
		resourceKind = model.ResourceFolder
	default:
		return "", "", fmt.Errorf("invalid resource kind: %q", resource)
	}

	var subjectKind model.SubjectKind
	switch subject {
	case "principal":
		subjectKind = model.SubjectPrincipal
	case "role":
		subjectKind = model.SubjectRole
	default:
		return "", "", fmt.Errorf("invalid subject kind: %q", subject)
	}
	return resourceKind, subjectKind, nil
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag DOC_ID",
	Short: "Add or remove document tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		add, _ := cmd.Flags().GetStringSlice("add")
		remove, _ := cmd.Flags().GetStringSlice("remove")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		tags, err := a.Service.UpdateTags(cmd.Context(), principal(cmd), args[0], add, remove)
		if err != nil {
			return err
		}
		fmt.Printf("Tags: %s\n", strings.Join(tags, ", "))
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		text, _ := cmd.Flags().GetString("text")
		tag, _ := cmd.Flags().GetString("tag")
		contentType, _ := cmd.Flags().GetString("type")
		shared, _ := cmd.Flags().GetBool("shared")
		limit, _ := cmd.Flags().GetInt("limit")

		docs, err := a.Service.Search(cmd.Context(), principal(cmd), core.SearchQuery{
			Text:         text,
			Tag:          tag,
			ContentType:  contentType,
			SharedWithMe: shared,
			Limit:        limit,
		})
		if err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %-30s  %s\n", d.DocumentID, d.Name, strings.Join(d.Tags, ","))
		}
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls FOLDER_ID",
	Short: "List documents in a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		trashed, _ := cmd.Flags().GetBool("trashed")
		limit, _ := cmd.Flags().GetInt("limit")
		docs, err := a.Service.ListFolderDocuments(cmd.Context(), principal(cmd), args[0], core.ListOptions{
			Limit:          limit,
			IncludeTrashed: trashed,
		})
		if err != nil {
			return err
		}
		for _, d := range docs {
			fmt.Printf("%s  %-30s  v%d  %s\n", d.ID, d.Name, d.CurrentSeq, d.State)
		}
		return nil
	},
}

// batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run operations over multiple documents",
}

func newBatchCmd(use, short string, run func(*cobra.Command, *app.App, []string) (*model.BatchJob, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := run(cmd, a, args)
			if err != nil {
				return err
			}
			printBatchJob(job)
			return nil
		},
	}
}

func printBatchJob(job *model.BatchJob) {
	fmt.Printf("Batch %s: %s\n", job.ID, job.Status)
	for _, item := range job.Items {
		if item.Status == model.ItemSucceeded {
			fmt.Printf("  [%d] %s: ok\n", item.Position, item.TargetID)
			continue
		}
		fmt.Printf("  [%d] %s: %s (%s) %s\n", item.Position, item.TargetID, item.Status, item.ErrorKind, item.Reason)
	}
}

// reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair search index entries that lag the metadata store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fixed, err := a.Sync.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Reconciled %d index entries\n", fixed)
		return nil
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View recent audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Service.ListAudit(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %-12s  %-20s  %s  %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.ActorID, e.Action, e.ResourceID, e.Outcome)
		}
		return nil
	},
}

// orphans command
var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List storage keys flagged as possibly unreferenced",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		candidates, err := a.Service.ListOrphanCandidates(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No orphan candidates recorded.")
			return nil
		}
		for _, c := range candidates {
			fmt.Printf("%s  %s  %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"), c.StorageKey, c.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("as", "local", "Acting principal id")
	rootCmd.PersistentFlags().StringSlice("roles", nil, "Roles of the acting principal")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysInitCmd)

	mkdirCmd.Flags().String("parent", "", "Parent folder id (empty for root)")
	rootCmd.AddCommand(mkdirCmd)

	uploadCmd.Flags().String("name", "", "Document name (defaults to the file name)")
	uploadCmd.Flags().String("type", "", "Content type")
	rootCmd.AddCommand(uploadCmd)

	updateCmd.Flags().String("type", "", "Content type")
	rootCmd.AddCommand(updateCmd)

	downloadCmd.Flags().StringP("output", "o", "", "Write content to a file instead of stdout")
	downloadCmd.Flags().Int64("version", 0, "Download a specific version instead of the current one")
	rootCmd.AddCommand(downloadCmd)

	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(restoreVersionCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(purgeCmd)

	mvCmd.Flags().String("name", "", "New document name (defaults to the current name)")
	rootCmd.AddCommand(mvCmd)

	shareCmd.Flags().String("resource", "document", "Resource kind: document or folder")
	shareCmd.Flags().String("subject", "principal", "Subject kind: principal or role")
	shareCmd.Flags().String("caps", "read", "Comma-separated capabilities (read,write,share,delete) or none")
	rootCmd.AddCommand(shareCmd)

	unshareCmd.Flags().String("resource", "document", "Resource kind: document or folder")
	unshareCmd.Flags().String("subject", "principal", "Subject kind: principal or role")
	rootCmd.AddCommand(unshareCmd)

	tagCmd.Flags().StringSlice("add", nil, "Tags to add")
	tagCmd.Flags().StringSlice("remove", nil, "Tags to remove")
	rootCmd.AddCommand(tagCmd)

	searchCmd.Flags().String("text", "", "Match against document names")
	searchCmd.Flags().String("tag", "", "Match a tag")
	searchCmd.Flags().String("type", "", "Match the content type")
	searchCmd.Flags().Bool("shared", false, "Search documents shared with me instead of my own")
	searchCmd.Flags().IntP("limit", "n", 50, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)

	lsCmd.Flags().Bool("trashed", false, "Include trashed documents")
	lsCmd.Flags().IntP("limit", "n", 0, "Maximum number of documents (0 for all)")
	rootCmd.AddCommand(lsCmd)

	batchCmd.AddCommand(newBatchCmd("trash DOC_ID...", "Trash multiple documents",
		func(cmd *cobra.Command, a *app.App, args []string) (*model.BatchJob, error) {
			return a.Service.BatchTrash(cmd.Context(), principal(cmd), args)
		}))
	batchCmd.AddCommand(newBatchCmd("restore DOC_ID...", "Restore multiple documents",
		func(cmd *cobra.Command, a *app.App, args []string) (*model.BatchJob, error) {
			return a.Service.BatchRestore(cmd.Context(), principal(cmd), args)
		}))
	batchCmd.AddCommand(newBatchCmd("purge DOC_ID...", "Purge multiple documents",
		func(cmd *cobra.Command, a *app.App, args []string) (*model.BatchJob, error) {
			return a.Service.BatchPurge(cmd.Context(), principal(cmd), args)
		}))
	batchMvCmd := newBatchCmd("mv DOC_ID...", "Move multiple documents",
		func(cmd *cobra.Command, a *app.App, args []string) (*model.BatchJob, error) {
			dest, _ := cmd.Flags().GetString("dest")
			if dest == "" {
				return nil, fmt.Errorf("--dest is required")
			}
			return a.Service.BatchMove(cmd.Context(), principal(cmd), args, dest)
		})
	batchMvCmd.Flags().String("dest", "", "Destination folder id")
	batchCmd.AddCommand(batchMvCmd)
	batchTagCmd := newBatchCmd("tag DOC_ID...", "Apply the same tag change to multiple documents",
		func(cmd *cobra.Command, a *app.App, args []string) (*model.BatchJob, error) {
			add, _ := cmd.Flags().GetStringSlice("add")
			remove, _ := cmd.Flags().GetStringSlice("remove")
			return a.Service.BatchUpdateTags(cmd.Context(), principal(cmd), args, add, remove)
		})
	batchTagCmd.Flags().StringSlice("add", nil, "Tags to add")
	batchTagCmd.Flags().StringSlice("remove", nil, "Tags to remove")
	batchCmd.AddCommand(batchTagCmd)
	rootCmd.AddCommand(batchCmd)

	rootCmd.AddCommand(reconcileCmd)

	auditCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
	rootCmd.AddCommand(auditCmd)

	orphansCmd.Flags().IntP("limit", "n", 50, "Maximum number of candidates to show")
	rootCmd.AddCommand(orphansCmd)
}
