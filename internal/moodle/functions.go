package moodle

// Web-service functions this client invokes.
const (
	fnSearchCourses     = "core_course_search_courses"
	fnGetCourses        = "core_course_get_courses"
	fnGetCoursesByField = "core_course_get_courses_by_field"
	fnGetUsersCourses   = "core_enrol_get_users_courses"
	fnCreateCourses     = "core_course_create_courses"
	fnGetUsers          = "core_user_get_users"
	fnGetUsersByField   = "core_user_get_users_by_field"
	fnCreateUsers       = "core_user_create_users"
	fnEmailSignupUser   = "auth_email_signup_user"
	fnRequestLoginURL   = "auth_userkey_request_login_url"
)
