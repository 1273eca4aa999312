package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"otcextensions/cli/pkg/client"
	"otcextensions/core/sdkutils"
)

var ctsCmd = &cobra.Command{
	Use:   "cts",
	Short: "Cloud Trace Service commands",
}

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Manage the tracker recording operations into OBS",
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Query recorded operations",
}

var trackerColumns = sdkutils.ColumnMap{
	{SDKAttr: "smn", DisplayAttr: "SMN"},
}

var trackerFormatters = sdkutils.Formatters{
	"smn": sdkutils.NewDictListColumn,
}

// trackerFlags are shared by tracker create and tracker set
type trackerFlags struct {
	bucketName     string
	filePrefixName string
	status         string
	enableSMN      sdkutils.BoolValue
	topicID        string
	operations     []string
	sendAllKeyOps  sdkutils.BoolValue
	notifyUsers    []string
}

func (f *trackerFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.bucketName, "bucket-name", "", "OBS bucket the traces are written to")
	flags.StringVar(&f.filePrefixName, "file-prefix-name", "", "prefix of the trace files in the bucket")
	flags.Var(&f.enableSMN, "enable-smn", "send key event notifications (true|false)")
	flags.StringVar(&f.topicID, "smn-topic-id", "", "SMN topic URN receiving notifications")
	flags.StringSliceVar(&f.operations, "smn-operation", nil, "key operation to notify about (repeatable)")
	flags.Var(&f.sendAllKeyOps, "smn-all-key-operations", "notify about all key operations (true|false)")
	flags.StringSliceVar(&f.notifyUsers, "smn-notify-user", nil, "user to notify (repeatable)")
}

func (f *trackerFlags) options() (client.TrackerOptions, error) {
	opts := client.TrackerOptions{
		BucketName:     f.bucketName,
		FilePrefixName: f.filePrefixName,
	}

	switch f.status {
	case "", "enabled", "disabled":
		opts.Status = f.status
	default:
		return opts, &usageError{fmt.Errorf("invalid status %q (must be enabled or disabled)", f.status)}
	}

	if f.enableSMN.Value != nil {
		smn := &client.SMN{
			IsSupportSMN: *f.enableSMN.Value,
			TopicID:      f.topicID,
			Operations:   f.operations,
		}
		if f.sendAllKeyOps.Value != nil {
			smn.IsSendAllKeyOperation = *f.sendAllKeyOps.Value
		}
		smn.NeedNotifyUserList = f.notifyUsers
		opts.SMN = smn
	} else if f.topicID != "" || len(f.operations) > 0 || len(f.notifyUsers) > 0 {
		return opts, &usageError{fmt.Errorf("--enable-smn is required with SMN options")}
	}
	return opts, nil
}

var (
	createFlags trackerFlags
	setFlags    trackerFlags
)

func trackerName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return client.DefaultTrackerName
}

var trackerShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a tracker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		tracker, err := c.CTS().GetTracker(cmd.Context(), trackerName(args))
		if err != nil {
			return err
		}
		return showResource(cmd, tracker, trackerColumns, nil, trackerFormatters)
	},
}

var trackerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the tracker of the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := createFlags.options()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		tracker, err := c.CTS().CreateTracker(cmd.Context(), opts)
		if err != nil {
			return err
		}
		log.Debug().Str("tracker", tracker.Name).Str("bucket", tracker.BucketName).Msg("Tracker created")
		return showResource(cmd, tracker, trackerColumns, nil, trackerFormatters)
	},
}

var trackerSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Update a tracker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := setFlags.options()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		tracker, err := c.CTS().UpdateTracker(cmd.Context(), trackerName(args), opts)
		if err != nil {
			return err
		}
		return showResource(cmd, tracker, trackerColumns, nil, trackerFormatters)
	},
}

var trackerDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a tracker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		name := trackerName(args)
		if err := c.CTS().DeleteTracker(cmd.Context(), name); err != nil {
			return err
		}
		log.Info().Str("tracker", name).Msg("Tracker deleted")
		return nil
	},
}

// traceColumns are the attributes shown by trace list, in order
var traceColumns = []string{
	"trace_id", "trace_name", "trace_rating", "service_type",
	"resource_type", "resource_name", "source_ip", "time",
}

var traceFormatters = sdkutils.Formatters{
	"time":        newTimestampColumn,
	"record_time": newTimestampColumn,
}

// timestampColumn shows millisecond epoch values as RFC 3339 times
type timestampColumn struct {
	value any
}

func newTimestampColumn(value any) sdkutils.FormattableColumn {
	return timestampColumn{value: value}
}

func (c timestampColumn) HumanReadable() *string {
	var ms int64
	switch v := c.value.(type) {
	case float64:
		ms = int64(v)
	case int64:
		ms = v
	case int:
		ms = int64(v)
	default:
		return nil
	}
	s := time.UnixMilli(ms).UTC().Format(time.RFC3339)
	return &s
}

func (c timestampColumn) MachineReadable() any {
	return c.value
}

var traceListFlags struct {
	tracker      string
	limit        int
	serviceType  string
	resourceType string
	resourceID   string
	resourceName string
	traceName    string
	traceRating  string
	user         string
	from         string
	to           string
}

func parseTimeFlag(name, value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, &usageError{fmt.Errorf("invalid --%s %q: expected RFC 3339 time", name, value)}
	}
	return t.UnixMilli(), nil
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := traceListFlags
		from, err := parseTimeFlag("from", fl.from)
		if err != nil {
			return err
		}
		to, err := parseTimeFlag("to", fl.to)
		if err != nil {
			return err
		}
		switch fl.traceRating {
		case "", "normal", "warning", "incident":
		default:
			return &usageError{fmt.Errorf("invalid trace rating %q (must be normal, warning or incident)", fl.traceRating)}
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		traces, err := c.CTS().Traces(cmd.Context(), fl.tracker, client.TraceQuery{
			Limit:        fl.limit,
			ServiceType:  fl.serviceType,
			ResourceType: fl.resourceType,
			ResourceID:   fl.resourceID,
			ResourceName: fl.resourceName,
			TraceName:    fl.traceName,
			TraceRating:  fl.traceRating,
			User:         fl.user,
			From:         from,
			To:           to,
		})
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(traces))
		for _, trace := range traces {
			row, err := sdkutils.ItemPropertiesForResource(trace, traceColumns, traceFormatters)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}

		f, err := newFormatter(cmd)
		if err != nil {
			return err
		}
		return f.List(traceColumns, rows)
	},
}

func init() {
	rootCmd.AddCommand(ctsCmd)
	ctsCmd.AddCommand(trackerCmd)
	ctsCmd.AddCommand(traceCmd)

	trackerCmd.AddCommand(trackerShowCmd)
	trackerCmd.AddCommand(trackerCreateCmd)
	trackerCmd.AddCommand(trackerSetCmd)
	trackerCmd.AddCommand(trackerDeleteCmd)
	traceCmd.AddCommand(traceListCmd)

	createFlags.register(trackerCreateCmd)
	trackerCreateCmd.MarkFlagRequired("bucket-name")

	setFlags.register(trackerSetCmd)
	trackerSetCmd.Flags().StringVar(&setFlags.status, "status", "", "tracker status (enabled|disabled)")

	flags := traceListCmd.Flags()
	flags.StringVar(&traceListFlags.tracker, "tracker", client.DefaultTrackerName, "tracker the traces were recorded by")
	flags.IntVar(&traceListFlags.limit, "limit", 0, "maximum number of traces to return (0 for all)")
	flags.StringVar(&traceListFlags.serviceType, "service-type", "", "filter by service type, e.g. CTS or ECS")
	flags.StringVar(&traceListFlags.resourceType, "resource-type", "", "filter by resource type")
	flags.StringVar(&traceListFlags.resourceID, "resource-id", "", "filter by resource ID")
	flags.StringVar(&traceListFlags.resourceName, "resource-name", "", "filter by resource name")
	flags.StringVar(&traceListFlags.traceName, "trace-name", "", "filter by operation name")
	flags.StringVar(&traceListFlags.traceRating, "trace-rating", "", "filter by rating (normal|warning|incident)")
	flags.StringVar(&traceListFlags.user, "user", "", "filter by user name")
	flags.StringVar(&traceListFlags.from, "from", "", "only traces after this RFC 3339 time")
	flags.StringVar(&traceListFlags.to, "to", "", "only traces before this RFC 3339 time")
}
