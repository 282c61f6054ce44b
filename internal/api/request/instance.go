package request

type CreateInstance struct {
	OrganizationName string `json:"organization_name" validate:"required,max=128"`
	Slug             string `json:"slug" validate:"required,slug"`
	Tier             string `json:"tier" validate:"required,oneof=starter professional enterprise"`
	DeploymentModel  string `json:"deployment_model" validate:"required,oneof=shared dedicated"`
	// VPSID pins a shared tenant to a specific machine. Ignored for dedicated.
	VPSID         string `json:"vps_id" validate:"omitempty"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminPassword string `json:"admin_password" validate:"required,min=12"`
}
