package tools

import "net/http"

const whereGrammar = `<expression> ::= 'properties["' <property> '"]'
                  | <expression> <binary op> <expression>
                  | <unary op> <expression>
                  | <math op> '(' <expression> ')'
                  | <string literal>
    <binary op> ::= '+' | '-' | '*' | '/' | '%' | '==' | '!=' |
                    '>' | '>=' | '<' | '<=' | 'in' | 'and' | 'or'
    <unary op> ::= '-' | 'not'`

const profileWhereGrammar = `<expression> ::= 'properties["' <property> '"]'
                  | <expression> <binary op> <expression>
                  | <unary op> <expression>
                  | <math op> '(' <expression> ')'
                  | <typecast op> '(' <expression> ')'
                  | '(' <expression> ')'
                  | <boolean literal>
                  | <numeric literal>
                  | <string literal>
    <binary op> ::= '+' | '-' | '*' | '/' | '%' | '==' | '!=' |
                    '>' | '>=' | '<' | '<=' | 'in' | 'and' | 'or'
    <unary op> ::= '-' | 'not'
      <math op> ::= 'floor' | 'round' | 'ceil'
  <typecast op> ::= 'boolean' | 'number' | 'string'
    <property> ::= 'properties["' <property name> '"]'`

var analysisTypes = []string{"general", "unique", "average"}

func projectID() Param {
	return Param{Name: "project_id", Kind: KindString, Description: "The Mixpanel project ID. Optional since it has a default."}
}

func workspaceID() Param {
	return Param{Name: "workspace_id", Kind: KindString, Description: "The ID of the workspace if applicable"}
}

func fromDate(required bool) Param {
	return Param{Name: "from_date", Kind: KindString, Required: required, Description: "The date in yyyy-mm-dd format to begin querying from (inclusive)"}
}

func toDate(required bool) Param {
	return Param{Name: "to_date", Kind: KindString, Required: required, Description: "The date in yyyy-mm-dd format to query to (inclusive)"}
}

func where(subject string) Param {
	return Param{Name: "where", Kind: KindString, Description: "An expression to filter " + subject + " by based on the grammar: " + whereGrammar}
}

func singleEvent() Param {
	return Param{Name: "event", Kind: KindString, Required: true, Description: "The event that you wish to get data for. Note: this is a single event name, not an array"}
}

func number(name, description string) Param {
	return Param{Name: name, Kind: KindNumber, Description: description}
}

func str(name, description string) Param {
	return Param{Name: name, Kind: KindString, Description: description}
}

func enum(name, description string, values ...string) Param {
	return Param{Name: name, Kind: KindEnum, Enum: values, Description: description}
}

func required(p Param) Param {
	p.Required = true
	return p
}

func withDefault(p Param, v any) Param {
	p.Default = v
	return p
}

// MixpanelTools is the endpoint table. Every entry is served by the same
// request/response pipeline.
var MixpanelTools = []EndpointTool{
	{
		Name:        "get_today_top_events",
		Description: "Get today's top events from Mixpanel. Useful for quickly identifying the most active events happening today, spotting trends, and monitoring real-time user activity.",
		Params: []Param{
			projectID(),
			withDefault(enum("type", "The type of events to fetch, either general, average, or unique, defaults to general", "general", "average", "unique"), "general"),
			withDefault(number("limit", "Maximum number of events to return"), 10),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/events/top", Title: "Today's Top Events", Render: renderList("event")},
	},
	{
		Name:        "profile_event_activity",
		Description: "Get data for a profile's event activity. Useful for understanding individual user journeys, troubleshooting user-specific issues, and analyzing behavior patterns of specific users.",
		Params: []Param{
			projectID(),
			workspaceID(),
			{Name: "distinct_ids", Kind: KindJSONArray, Required: true, Description: "A JSON array as a string representing the `distinct_ids` to return activity feeds for. Example: `[\"12a34aa567eb8d-9ab1c26f345b67-89123c45-6aeaa7-89f12af345f678\"]`"},
			fromDate(true),
			toDate(true),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/stream/query"},
	},
	{
		Name:        "get_top_events",
		Description: "Get a list of the most common events over the last 31 days. Useful for identifying key user actions, prioritizing feature development, and understanding overall platform usage patterns.",
		Params: []Param{
			projectID(),
			withDefault(enum("type", "The type of events to fetch, either general, average, or unique, defaults to general", "general", "average", "unique"), "general"),
			withDefault(number("limit", "Maximum number of events to return"), 10),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/events/names", Title: "Top Events (Last 31 Days)", Render: renderList("event")},
	},
	{
		Name:        "aggregate_event_counts",
		Description: "Get unique, general, or average data for a set of events over N days, weeks, or months. Useful for trend analysis, comparing event performance over time, and creating time-series visualizations.",
		Params: []Param{
			projectID(),
			{Name: "event", Kind: KindJSONArray, Required: true, Description: "The event or events that you wish to get data for, a string encoded as a JSON array. Example format: \"[\"play song\", \"log in\", \"add playlist\"]\""},
			withDefault(enum("type", "The type of data to fetch, either general, unique, or average, defaults to general", analysisTypes...), "general"),
			required(enum("unit", "The level of granularity of the data you get back", "minute", "hour", "day", "week", "month")),
			number("interval", "The number of units to return data for. Specify either interval or from_date and to_date"),
			fromDate(false),
			toDate(false),
		},
		Window:   WindowIntervalOrDates,
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/events", Title: "Event Counts", Render: renderSeries},
	},
	{
		Name:        "aggregated_event_property_values",
		Description: "Get unique, general, or average data for a single event and property over days, weeks, or months. Useful for analyzing how specific properties affect event performance, segmenting users, and identifying valuable user attributes.",
		Params: []Param{
			projectID(),
			Param{Name: "event", Kind: KindString, Required: true, Description: "The event that you wish to get data for (a single event name, not an array)"},
			required(str("name", "The name of the property you would like to get data for")),
			{Name: "values", Kind: KindJSONArray, Description: "The specific property values to get data for, encoded as a JSON array. Example: \"[\"female\", \"unknown\"]\""},
			withDefault(enum("type", "The analysis type - general, unique, or average events, defaults to general", analysisTypes...), "general"),
			required(enum("unit", "The level of granularity of the data (minute, hour, day, week, or month)", "minute", "hour", "day", "week", "month")),
			number("interval", "The number of units to return data for. Specify either interval or from_date and to_date"),
			fromDate(false),
			toDate(false),
			number("limit", "The maximum number of values to return (default: 255)"),
		},
		Window:   WindowIntervalOrDates,
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/events/properties", Title: "Event Property Values", Render: renderSeries},
	},
	{
		Name:        "query_insights_report",
		Description: "Get data from your Insights reports. Useful for accessing saved analyses, sharing standardized metrics across teams, and retrieving complex pre-configured visualizations.",
		Params: []Param{
			projectID(),
			workspaceID(),
			required(str("bookmark_id", "The ID of your Insights report")),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/insights"},
	},
	{
		Name:        "query_funnel_report",
		Description: "Get data for a funnel based on a funnel_id. Useful for analyzing user conversion paths, identifying drop-off points in user journeys, and optimizing multi-step processes. Funnel IDs should be retrieved using the list_saved_funnels tool.",
		Params: []Param{
			projectID(),
			workspaceID(),
			required(str("funnel_id", "The Mixpanel funnel ID that you wish to get data for")),
			fromDate(true),
			toDate(true),
			number("length", "The number of units each user has to complete the funnel"),
			enum("length_unit", "The unit applied to the length parameter", "day", "hour", "minute", "second"),
			number("interval", "The number of days you want each bucket to contain"),
			enum("unit", "Alternate way of specifying interval", "day", "week", "month"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/funnels", Title: "Funnel Report", Render: renderFunnel},
	},
	{
		Name:        "list_saved_funnels",
		Description: "Get the names and IDs of your saved funnels. Useful for discovering available funnels for analysis and retrieving funnel IDs needed for the query_funnel_report tool.",
		Params: []Param{
			projectID(),
			workspaceID(),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/funnels/list", Title: "Saved Funnels", Render: renderList("funnel")},
	},
	{
		Name:        "list_saved_cohorts",
		Description: "Get all cohorts in a given project. Useful for discovering user segments, planning targeted analyses, and retrieving cohort IDs for filtering in other reports.",
		Params: []Param{
			projectID(),
			workspaceID(),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/cohorts/list", Title: "Saved Cohorts", Render: renderList("cohort")},
	},
	{
		Name:        "query_retention_report",
		Description: "Get data from your Retention reports. Useful for analyzing user engagement over time, measuring product stickiness, and understanding how well your product retains users after specific actions. Only use params interval or unit, not both.",
		Params: []Param{
			projectID(),
			workspaceID(),
			fromDate(true),
			toDate(true),
			enum("retention_type", "Type of retention: 'birth' (first time) or 'compounded' (recurring). Defaults to 'birth'", "birth", "compounded"),
			str("born_event", "The first event a user must do to be counted in a birth retention cohort, required if retention_type is 'birth'. Can use $mp_web_page_view as the born_event for general cases."),
			str("event", "The event to generate returning counts for. If not specified, looks across all events"),
			str("born_where", "An expression to filter born_events by based on the grammar: "+whereGrammar),
			{Name: "return_where", Wire: "where", Kind: KindString, Description: "An expression to filter return events by based on the grammar: " + whereGrammar},
			number("interval", "The number of units per individual bucketed interval. Default is 1. DO NOT USE IF ALREADY PROVIDING UNIT."),
			number("interval_count", "The number of individual buckets/intervals to return. Default is 1. DO NOT USE IF ALREADY PROVIDING UNIT."),
			enum("unit", "The interval unit: 'day' (eg use if asked for D7 or D30), 'week' (eg use if asked for W12), or 'month' (eg use if asked for M6). Default is 'day'. DO NOT USE IF ALREADY PROVIDING INTERVAL.", "day", "week", "month"),
			str("on", "The property expression to segment the second event on"),
			number("limit", "Return the top limit segmentation values. Only applies when 'on' is specified"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/retention", Title: "Retention Report", Render: renderRetention},
	},
	{
		Name:        "custom_jql",
		Description: "Run a custom JQL (JSON Query Language) script against your Mixpanel data. Useful for complex custom analyses, advanced data transformations, and queries that can't be handled by standard report types.",
		Params: []Param{
			projectID(),
			workspaceID(),
			required(str("script", "The JQL script to run (JavaScript code that uses Mixpanel's JQL functions)")),
			{Name: "params", Kind: KindJSONObject, Description: "A JSON string containing parameters to pass to the script (will be available as the 'params' variable)"},
		},
		Endpoint: Endpoint{Method: http.MethodPost, Path: "/jql"},
	},
	{
		Name:        "query_segmentation_sum",
		Description: "Sum a numeric expression for events over time. Useful for calculating revenue metrics, aggregating quantitative values, and tracking cumulative totals across different time periods.",
		Params: []Param{
			projectID(),
			workspaceID(),
			Param{Name: "event", Kind: KindString, Required: true, Description: "The event that you wish to get data for (single event name, not an array)"},
			fromDate(true),
			toDate(true),
			required(str("on", "The expression to sum per unit time (should result in a numeric value)")),
			enum("unit", "Time bucket size: 'hour' or 'day'. Default is 'day'", "hour", "day"),
			where("events"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/segmentation/sum", Title: "Segmentation Sum", Render: renderResults},
	},
	{
		Name:        "query_profiles",
		Description: "Query Mixpanel user profiles with filtering options. Useful for retrieving detailed user profiles, filtering by specific properties, and analyzing user behavior across different dimensions.",
		Params: []Param{
			projectID(),
			workspaceID(),
			str("distinct_id", "A unique identifier used to distinguish an individual profile"),
			{Name: "distinct_ids", Kind: KindJSONArray, Description: "A JSON array of distinct_ids to retrieve profiles for. Example: '[\"id1\", \"id2\"]'"},
			str("data_group_id", "The ID of the group key, used when querying group profiles"),
			{Name: "where", Kind: KindString, Description: "An expression to filter users (or groups) by. Using the following grammar: " + profileWhereGrammar},
			{Name: "output_properties", Kind: KindJSONArray, Description: "A JSON array of names of properties you want returned. Example: '[\"$last_name\", \"$email\", \"Total Spent\"]'"},
			str("session_id", "A string id provided in the results of a previous query. Using a session_id speeds up api response, and allows paging through results"),
			number("page", "Which page of the results to retrieve. Pages start at zero. If the 'page' parameter is provided, the session_id parameter must also be provided"),
			number("behaviors", "If you are exporting user profiles using an event selector, you use a 'behaviors' parameter in your request"),
			number("as_of_timestamp", "This parameter is only useful when also using 'behaviors'"),
			{Name: "filter_by_cohort", Kind: KindJSONObject, Description: "Takes a JSON object with a single key called 'id' whose value is the cohort ID. Example: '{\"id\":12345}'"},
			{Name: "include_all_users", Kind: KindBoolean, Description: "Only applicable with 'filter_by_cohort' parameter. Default is true"},
		},
		Endpoint: Endpoint{Method: http.MethodPost, Path: "/engage"},
	},
	{
		Name:        "query_frequency_report",
		Description: "Get data for frequency of actions over time. Useful for analyzing how often users perform specific actions, identifying patterns of behavior, and tracking user engagement over time.",
		Params: []Param{
			projectID(),
			workspaceID(),
			fromDate(true),
			toDate(true),
			required(enum("unit", "The overall time period to return frequency of actions for", "day", "week", "month")),
			required(enum("addiction_unit", "The granularity to return frequency of actions at", "hour", "day")),
			str("event", "The event to generate returning counts for"),
			where("the returning events"),
			str("on", "The property expression to segment the second event on"),
			number("limit", "Return the top limit segmentation values. This parameter does nothing if 'on' is not specified"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/retention/addiction"},
	},
	{
		Name:        "query_segmentation_report",
		Description: "Get data for an event, segmented and filtered by properties. Useful for breaking down event data by user attributes, comparing performance across segments, and identifying which user groups perform specific actions.",
		Params: []Param{
			projectID(),
			workspaceID(),
			singleEvent(),
			fromDate(true),
			toDate(true),
			str("on", "The property expression to segment the event on"),
			enum("unit", "The buckets into which the property values that you segment on are placed. Default is 'day'", "minute", "hour", "day", "month"),
			number("interval", "Optional parameter in lieu of 'unit' when 'type' is not 'general'. Determines the number of days your results are bucketed into"),
			where("events"),
			number("limit", "Return the top property values. Defaults to 60. Maximum value 10,000. This parameter does nothing if 'on' is not specified"),
			enum("type", "The type of analysis to perform, either general, unique, or average, defaults to general", analysisTypes...),
			enum("format", "Can be set to 'csv'", "csv"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/segmentation", Title: "Segmentation Report", Render: renderSeries, CSV: true},
	},
	{
		Name:        "query_segmentation_bucket",
		Description: "Get data for an event, segmented and filtered by properties, with values placed into numeric buckets. Useful for analyzing distributions of numeric values, creating histograms, and understanding the range of quantitative metrics.",
		Params: []Param{
			projectID(),
			workspaceID(),
			singleEvent(),
			fromDate(true),
			toDate(true),
			required(str("on", "The property expression to segment the event on. This expression must be a numeric property")),
			enum("unit", "The buckets into which the property values that you segment on are placed. Default is 'day'", "hour", "day"),
			where("events"),
			enum("type", "The type of analysis to perform, either general, unique, or average, defaults to general", analysisTypes...),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/segmentation/numeric", Title: "Numeric Segmentation", Render: renderSeries},
	},
	{
		Name:        "query_segmentation_average",
		Description: "Averages an expression for events per unit time. Useful for calculating average values like purchase amounts, session durations, or any numeric metric, and tracking how these averages change over time.",
		Params: []Param{
			projectID(),
			workspaceID(),
			singleEvent(),
			fromDate(true),
			toDate(true),
			required(str("on", "The expression to average per unit time. The result of the expression should be a numeric value")),
			enum("unit", "The buckets [hour, day] into which the property values are placed. Default is 'day'", "hour", "day"),
			where("events"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/segmentation/average", Title: "Segmentation Average", Render: renderResults},
	},
	{
		Name:        "top_event_properties",
		Description: "Get the top property names for an event. Useful for discovering which properties are most commonly associated with an event, prioritizing which dimensions to analyze, and understanding event structure.",
		Params: []Param{
			projectID(),
			workspaceID(),
			singleEvent(),
			number("limit", "The maximum number of properties to return. Defaults to 10"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/events/properties/top"},
	},
	{
		Name:        "top_event_property_values",
		Description: "Get the top values for a property. Useful for understanding the distribution of values for a specific property, identifying the most common categories or segments, and planning further targeted analyses.",
		Params: []Param{
			projectID(),
			workspaceID(),
			singleEvent(),
			required(str("name", "The name of the property you would like to get data for")),
			number("limit", "The maximum number of values to return. Defaults to 255"),
		},
		Endpoint: Endpoint{Method: http.MethodGet, Path: "/events/properties/values"},
	},
}

// RegisterMixpanelTools registers every endpoint tool backed by caller
func RegisterMixpanelTools(r *Registry, caller Caller) error {
	for _, t := range MixpanelTools {
		if err := r.Register(t.Definition(caller)); err != nil {
			return err
		}
	}
	return nil
}
