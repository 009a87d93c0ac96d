// Code generated by "stringer -type=SQLCommandType,StatementKind,ResultSetType,ParameterMode,AutoMappingBehavior,AutoMappingUnknownColumnBehavior,ExecutorType,LocalCacheScope -output enums_string.go"; DO NOT EDIT.

package sqlmap

import "strconv"

func _() {
	// An "invalid array index" compiler error signals that the constant values have changed.
	// Re-run the stringer command to generate them again.
	var x [1]struct{}
	_ = x[SQLUnknown-0]
	_ = x[SQLSelect-1]
	_ = x[SQLInsert-2]
	_ = x[SQLUpdate-3]
	_ = x[SQLDelete-4]
	_ = x[SQLFlush-5]
}

const _SQLCommandType_name = "UNKNOWNSELECTINSERTUPDATEDELETEFLUSH"

var _SQLCommandType_index = [...]uint8{0, 7, 13, 19, 25, 31, 36}

func (i SQLCommandType) String() string {
	if i < 0 || i >= SQLCommandType(len(_SQLCommandType_index)-1) {
		return "SQLCommandType(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _SQLCommandType_name[_SQLCommandType_index[i]:_SQLCommandType_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[StatementStatement-0]
	_ = x[StatementPrepared-1]
	_ = x[StatementCallable-2]
}

const _StatementKind_name = "STATEMENTPREPAREDCALLABLE"

var _StatementKind_index = [...]uint8{0, 9, 18, 26}

func (i StatementKind) String() string {
	if i < 0 || i >= StatementKind(len(_StatementKind_index)-1) {
		return "StatementKind(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _StatementKind_name[_StatementKind_index[i]:_StatementKind_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[ResultSetDefault-0]
	_ = x[ResultSetForwardOnly-1]
	_ = x[ResultSetScrollInsensitive-2]
	_ = x[ResultSetScrollSensitive-3]
}

const _ResultSetType_name = "DEFAULTFORWARD_ONLYSCROLL_INSENSITIVESCROLL_SENSITIVE"

var _ResultSetType_index = [...]uint8{0, 7, 19, 37, 55}

func (i ResultSetType) String() string {
	if i < 0 || i >= ResultSetType(len(_ResultSetType_index)-1) {
		return "ResultSetType(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _ResultSetType_name[_ResultSetType_index[i]:_ResultSetType_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[ParameterIn-0]
	_ = x[ParameterOut-1]
	_ = x[ParameterInOut-2]
}

const _ParameterMode_name = "INOUTINOUT"

var _ParameterMode_index = [...]uint8{0, 2, 5, 10}

func (i ParameterMode) String() string {
	if i < 0 || i >= ParameterMode(len(_ParameterMode_index)-1) {
		return "ParameterMode(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _ParameterMode_name[_ParameterMode_index[i]:_ParameterMode_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[AutoMappingNone-0]
	_ = x[AutoMappingPartial-1]
	_ = x[AutoMappingFull-2]
}

const _AutoMappingBehavior_name = "NONEPARTIALFULL"

var _AutoMappingBehavior_index = [...]uint8{0, 4, 11, 15}

func (i AutoMappingBehavior) String() string {
	if i < 0 || i >= AutoMappingBehavior(len(_AutoMappingBehavior_index)-1) {
		return "AutoMappingBehavior(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _AutoMappingBehavior_name[_AutoMappingBehavior_index[i]:_AutoMappingBehavior_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[UnknownColumnNone-0]
	_ = x[UnknownColumnWarning-1]
	_ = x[UnknownColumnFailing-2]
}

const _AutoMappingUnknownColumnBehavior_name = "NONEWARNINGFAILING"

var _AutoMappingUnknownColumnBehavior_index = [...]uint8{0, 4, 11, 18}

func (i AutoMappingUnknownColumnBehavior) String() string {
	if i < 0 || i >= AutoMappingUnknownColumnBehavior(len(_AutoMappingUnknownColumnBehavior_index)-1) {
		return "AutoMappingUnknownColumnBehavior(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _AutoMappingUnknownColumnBehavior_name[_AutoMappingUnknownColumnBehavior_index[i]:_AutoMappingUnknownColumnBehavior_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[ExecutorSimple-0]
	_ = x[ExecutorReuse-1]
	_ = x[ExecutorBatch-2]
}

const _ExecutorType_name = "SIMPLEREUSEBATCH"

var _ExecutorType_index = [...]uint8{0, 6, 11, 16}

func (i ExecutorType) String() string {
	if i < 0 || i >= ExecutorType(len(_ExecutorType_index)-1) {
		return "ExecutorType(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _ExecutorType_name[_ExecutorType_index[i]:_ExecutorType_index[i+1]]
}

func _() {
	var x [1]struct{}
	_ = x[LocalCacheSession-0]
	_ = x[LocalCacheStatement-1]
}

const _LocalCacheScope_name = "SESSIONSTATEMENT"

var _LocalCacheScope_index = [...]uint8{0, 7, 16}

func (i LocalCacheScope) String() string {
	if i < 0 || i >= LocalCacheScope(len(_LocalCacheScope_index)-1) {
		return "LocalCacheScope(" + strconv.FormatInt(int64(i), 10) + ")"
	}
	return _LocalCacheScope_name[_LocalCacheScope_index[i]:_LocalCacheScope_index[i+1]]
}
