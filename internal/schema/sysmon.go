package schema

const (
	ProcessCreate      Kind = "ProcessCreate"
	FileCreateTime     Kind = "FileCreateTime"
	NetworkConnection  Kind = "NetworkConnection"
	ProcessTerminate   Kind = "ProcessTerminate"
	ImageLoad          Kind = "ImageLoad"
	CreateRemoteThread Kind = "CreateRemoteThread"
	ProcessAccess      Kind = "ProcessAccess"
	FileCreate         Kind = "FileCreate"
	RegistryObject     Kind = "RegistryObject"
	RegistryValueSet   Kind = "RegistryValueSet"
	DNSQuery           Kind = "DnsQuery"
	FileDeleteArchived Kind = "FileDeleteArchived"
	ProcessTampering   Kind = "ProcessTampering"
	FileDeleteDetected Kind = "FileDeleteDetected"
)

type definition struct {
	kind    Kind
	code    string
	label   string
	fields  []FieldSpec
	aliases map[string]string
}

func f(name, alias string) FieldSpec {
	return FieldSpec{Name: name, Alias: alias}
}

var sysmonDefinitions = []definition{
	{
		kind:  ProcessCreate,
		code:  "1",
		label: "Process Create",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("file_version", "FileVersion"),
			f("description", "Description"),
			f("product", "Product"),
			f("company", "Company"),
			f("original_file_name", "OriginalFileName"),
			f("command_line", "CommandLine"),
			f("current_directory", "CurrentDirectory"),
			f("user", "User"),
			f("logon_guid", "LogonGuid"),
			f("logon_id", "LogonId"),
			f("terminal_session_id", "TerminalSessionId"),
			f("integrity_level", "IntegrityLevel"),
			f("hashes", "Hashes"),
			f("parent_process_guid", "ParentProcessGuid"),
			f("parent_process_id", "ParentProcessId"),
			f("parent_image", "ParentImage"),
			f("parent_command_line", "ParentCommandLine"),
			f("parent_user", "ParentUser"),
		},
	},
	{
		kind:  FileCreateTime,
		code:  "2",
		label: "File creation time changed",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("target_filename", "TargetFilename"),
			f("creation_utc_time", "CreationUtcTime"),
			f("previous_creation_utc_time", "PreviousCreationUtcTime"),
			f("user", "User"),
		},
	},
	{
		// The reference extractor fills image from the User line and never
		// fills user. Kept as-is; override with a schema file to map User
		// onto user instead.
		kind:  NetworkConnection,
		code:  "3",
		label: "Network connection detected",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("user", ""),
			f("protocol", "Protocol"),
			f("initiated", "Initiated"),
			f("source_is_ipv6", "SourceIsIpv6"),
			f("source_ip", "SourceIp"),
			f("source_hostname", "SourceHostname"),
			f("source_port", "SourcePort"),
			f("source_port_name", "SourcePortName"),
			f("destination_is_ipv6", "DestinationIsIpv6"),
			f("destination_ip", "DestinationIp"),
			f("destination_hostname", "DestinationHostname"),
			f("destination_port", "DestinationPort"),
			f("destination_port_name", "DestinationPortName"),
		},
		aliases: map[string]string{"User": "image"},
	},
	{
		kind:  ProcessTerminate,
		code:  "5",
		label: "Process terminated",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("user", "User"),
		},
	},
	{
		kind:  ImageLoad,
		code:  "7",
		label: "Image loaded",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("image_loaded", "ImageLoaded"),
			f("file_version", "FileVersion"),
			f("description", "Description"),
			f("product", "Product"),
			f("company", "Company"),
			f("original_file_name", "OriginalFileName"),
			f("hashes", "Hashes"),
			f("signed", "Signed"),
			f("signature", "Signature"),
			f("signature_status", "SignatureStatus"),
			f("user", "User"),
		},
	},
	{
		kind:  CreateRemoteThread,
		code:  "8",
		label: "CreateRemoteThread detected",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("source_process_guid", "SourceProcessGuid"),
			f("source_process_id", "SourceProcessId"),
			f("source_image", "SourceImage"),
			f("target_process_guid", "TargetProcessGuid"),
			f("target_process_id", "TargetProcessId"),
			f("target_image", "TargetImage"),
			f("new_thread_id", "NewThreadId"),
			f("start_address", "StartAddress"),
			f("start_module", "StartModule"),
			f("start_function", "StartFunction"),
			f("source_user", "SourceUser"),
			f("target_user", "TargetUser"),
		},
	},
	{
		kind:  ProcessAccess,
		code:  "10",
		label: "Process accessed",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("source_process_guid", "SourceProcessGUID"),
			f("source_process_id", "SourceProcessId"),
			f("source_thread_id", "SourceThreadId"),
			f("source_image", "SourceImage"),
			f("target_process_guid", "TargetProcessGUID"),
			f("target_process_id", "TargetProcessId"),
			f("target_image", "TargetImage"),
			f("granted_access", "GrantedAccess"),
			f("call_trace", "CallTrace"),
			f("source_user", "SourceUser"),
			f("target_user", "TargetUser"),
		},
	},
	{
		kind:  FileCreate,
		code:  "11",
		label: "File created",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("target_filename", "TargetFilename"),
			f("creation_utc_time", "CreationUtcTime"),
			f("user", "User"),
		},
	},
	{
		kind:  RegistryObject,
		code:  "12",
		label: "Registry object added or deleted",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("event_type", "EventType"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("target_object", "TargetObject"),
			f("user", "User"),
		},
	},
	{
		kind:  RegistryValueSet,
		code:  "13",
		label: "Registry value set",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("event_type", "EventType"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("target_object", "TargetObject"),
			f("details", "Details"),
			f("user", "User"),
		},
	},
	{
		kind:  DNSQuery,
		code:  "22",
		label: "Dns query",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("query_name", "QueryName"),
			f("query_status", "QueryStatus"),
			f("query_results", "QueryResults"),
			f("image", "Image"),
			f("user", "User"),
		},
	},
	{
		kind:  FileDeleteArchived,
		code:  "23",
		label: "File Delete archived",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("user", "User"),
			f("image", "Image"),
			f("target_filename", "TargetFilename"),
			f("hashes", "Hashes"),
			f("is_executable", "IsExecutable"),
			f("archived", "Archived"),
		},
	},
	{
		kind:  ProcessTampering,
		code:  "25",
		label: "Process Tampering",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("image", "Image"),
			f("type", "Type"),
			f("user", "User"),
		},
	},
	{
		kind:  FileDeleteDetected,
		code:  "26",
		label: "File Delete logged",
		fields: []FieldSpec{
			f("utc_time", "UtcTime"),
			f("process_guid", "ProcessGuid"),
			f("process_id", "ProcessId"),
			f("user", "User"),
			f("image", "Image"),
			f("target_filename", "TargetFilename"),
			f("hashes", "Hashes"),
			f("is_executable", "IsExecutable"),
		},
	},
}

// NewSysmonRegistry returns a registry holding the built-in Sysmon schemas.
func NewSysmonRegistry() *Registry {
	r := NewRegistry()
	for _, d := range sysmonDefinitions {
		s, err := New(d.kind, d.code, d.label, d.fields, d.aliases)
		if err != nil {
			// The tables above are static; a failure here is a programming error.
			panic(err)
		}
		r.Register(s)
	}
	return r
}
